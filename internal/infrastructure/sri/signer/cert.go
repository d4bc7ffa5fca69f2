// Carga de certificado desde .p12 (PKCS#12) o par PEM.

package signer

import (
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

const opLoadCert = "signer.LoadCertificate"

// Load elige el cargador por extensión: .p12/.pfx como PKCS#12, cualquier otra como
// certificado PEM con la llave en keyPath.
func Load(path, keyPath, password string) (tls.Certificate, error) {
	if path == "" {
		return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.New("ruta del certificado no configurada"))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return LoadFromP12(path, password)
	}
	return LoadFromPEM(path, keyPath, password)
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.Wrap(err, "leer p12"))
	}
	return DecodeP12(data, password, time.Now())
}

// DecodeP12 decodifica un PKCS#12 ya leído y valida la vigencia contra now.
// Los .p12 emitidos por las entidades de certificación ecuatorianas suelen traer
// la cadena completa y más de una llave, por eso se recorre ToPEM en lugar de Decode.
func DecodeP12(data []byte, password string, now time.Time) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.New("contraseña del certificado incorrecta"))
		}
		return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.Wrap(err, "decodificar p12"))
	}

	var keys []*rsa.PrivateKey
	var certs []*x509.Certificate
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			if k, err := x509.ParsePKCS1PrivateKey(b.Bytes); err == nil {
				keys = append(keys, k)
			}
		case "CERTIFICATE":
			if c, err := x509.ParseCertificate(b.Bytes); err == nil {
				certs = append(certs, c)
			}
		}
	}

	leaf, key := matchSigningPair(certs, keys)
	if leaf == nil {
		return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.New("el p12 no contiene un par certificado/llave RSA"))
	}
	if err := CheckValidity(leaf, now); err != nil {
		return tls.Certificate{}, err
	}
	chain := [][]byte{leaf.Raw}
	for _, c := range certs {
		if c != leaf {
			chain = append(chain, c.Raw)
		}
	}
	return tls.Certificate{Certificate: chain, PrivateKey: key, Leaf: leaf}, nil
}

// matchSigningPair elige el certificado hoja cuya llave pública corresponde a una
// de las llaves privadas, prefiriendo el que tiene uso de firma digital.
func matchSigningPair(certs []*x509.Certificate, keys []*rsa.PrivateKey) (*x509.Certificate, *rsa.PrivateKey) {
	var fallback *x509.Certificate
	var fallbackKey *rsa.PrivateKey
	for _, c := range certs {
		pub, ok := c.PublicKey.(*rsa.PublicKey)
		if !ok || c.IsCA {
			continue
		}
		for _, k := range keys {
			if !k.PublicKey.Equal(pub) {
				continue
			}
			if c.KeyUsage&(x509.KeyUsageDigitalSignature|x509.KeyUsageContentCommitment) != 0 {
				return c, k
			}
			if fallback == nil {
				fallback, fallbackKey = c, k
			}
		}
	}
	return fallback, fallbackKey
}

// LoadFromPEM carga certificado y llave desde archivos PEM. keyPath vacío indica
// que la llave viene en el mismo archivo. Admite llaves PKCS#1, PKCS#8 y PKCS#8 cifradas.
func LoadFromPEM(certPath, keyPath, password string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.Wrap(err, "leer certificado PEM"))
	}
	keyPEM := certPEM
	if keyPath != "" {
		if keyPEM, err = os.ReadFile(keyPath); err != nil {
			return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.Wrap(err, "leer llave PEM"))
		}
	}
	return DecodePEM(certPEM, keyPEM, password, time.Now())
}

// DecodePEM arma el par certificado/llave desde bloques PEM ya leídos.
func DecodePEM(certPEM, keyPEM []byte, password string, now time.Time) (tls.Certificate, error) {
	var chain [][]byte
	var leaf *x509.Certificate
	for rest := certPEM; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.Wrap(err, "parsear certificado"))
		}
		if leaf == nil {
			leaf = c
		}
		chain = append(chain, block.Bytes)
	}
	if leaf == nil {
		return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.New("no se encontró bloque CERTIFICATE"))
	}

	key, err := parsePrivateKey(keyPEM, password)
	if err != nil {
		return tls.Certificate{}, err
	}
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok || !key.PublicKey.Equal(pub) {
		return tls.Certificate{}, domain.InvalidCertificate(opLoadCert, errors.New("la llave privada no corresponde al certificado"))
	}
	if err := CheckValidity(leaf, now); err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: chain, PrivateKey: key, Leaf: leaf}, nil
}

func parsePrivateKey(keyPEM []byte, password string) (*rsa.PrivateKey, error) {
	for rest := keyPEM; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		var (
			keyAny any
			err    error
		)
		switch block.Type {
		case "ENCRYPTED PRIVATE KEY":
			keyAny, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(password))
		case "PRIVATE KEY":
			keyAny, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		case "RSA PRIVATE KEY":
			keyAny, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		default:
			continue
		}
		if err != nil {
			// El mensaje de pkcs8 no distingue contraseña errónea de datos corruptos.
			return nil, domain.InvalidCertificate(opLoadCert, errors.New("no se pudo descifrar la llave privada"))
		}
		rsaKey, ok := keyAny.(*rsa.PrivateKey)
		if !ok {
			return nil, domain.InvalidCertificate(opLoadCert, errors.New("la llave privada debe ser RSA"))
		}
		return rsaKey, nil
	}
	return nil, domain.InvalidCertificate(opLoadCert, errors.New("no se encontró llave privada PEM"))
}

// CheckValidity rechaza certificados vencidos o aún no vigentes.
func CheckValidity(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return domain.InvalidCertificate(opLoadCert, errors.Newf("certificado vigente desde %s", cert.NotBefore.Format(time.DateOnly)))
	}
	if now.After(cert.NotAfter) {
		return domain.InvalidCertificate(opLoadCert, errors.Newf("certificado vencido el %s", cert.NotAfter.Format(time.DateOnly)))
	}
	return nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-1 del certificado (Base64), el
// emisor y el serial en decimal para etsi:SigningCertificate.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha1.Sum(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}

// leafOf devuelve el certificado hoja, parseándolo si tls.Certificate no lo trae.
func leafOf(cert tls.Certificate) (*x509.Certificate, error) {
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, errors.New("certificado sin cadena")
	}
	return x509.ParseCertificate(cert.Certificate[0])
}
