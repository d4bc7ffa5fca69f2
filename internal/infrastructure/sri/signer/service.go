// Servicio de firma digital XAdES-BES para comprobantes electrónicos del SRI.
// Agrega <ds:Signature> como último hijo del elemento raíz (firma enveloped).

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

const (
	opSign   = "signer.Sign"
	opVerify = "signer.Verify"

	signingTimeLayout = "2006-01-02T15:04:05-07:00"
)

// DigitalSignatureService implementa la firma XAdES-BES y su verificación.
type DigitalSignatureService struct {
	now func() time.Time
	ids func() int
}

// NewDigitalSignatureService crea el servicio con reloj real e identificadores aleatorios.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{now: time.Now, ids: randomID}
}

// WithClock fija el reloj usado para etsi:SigningTime.
func (s *DigitalSignatureService) WithClock(now func() time.Time) *DigitalSignatureService {
	s.now = now
	return s
}

// signatureIDs agrupa los Id cruzados entre referencias de una misma firma.
type signatureIDs struct {
	signature, signedInfo, signedPropsRef, signedProps string
	certificate, reference, signatureValue, object     string
}

func newSignatureIDs(n int) signatureIDs {
	suffix := strconv.Itoa(n)
	sig := "Signature" + suffix
	return signatureIDs{
		signature:      sig,
		signedInfo:     sig + "-SignedInfo" + suffix,
		signedPropsRef: "SignedPropertiesID" + suffix,
		signedProps:    sig + "-SignedProperties" + suffix,
		certificate:    "Certificate" + suffix,
		reference:      "Reference-ID-" + suffix,
		signatureValue: "SignatureValue" + suffix,
		object:         sig + "-Object" + suffix,
	}
}

// Sign firma el comprobante. Falla si el documento ya contiene una firma: la
// firma es la última mutación del XML y no se re-firma.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, domain.Signing(opSign, "XML vacío", nil)
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, domain.InvalidCertificate(opSign, errors.New("el certificado debe incluir llave privada RSA"))
	}
	leaf, err := leafOf(cert)
	if err != nil {
		return nil, domain.InvalidCertificate(opSign, err)
	}
	if err := CheckValidity(leaf, s.now()); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, domain.Signing(opSign, "XML mal formado", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, domain.Signing(opSign, "documento sin elemento raíz", nil)
	}
	if findSignature(root) != nil {
		return nil, domain.Signing(opSign, "el comprobante ya está firmado", nil)
	}

	// 1) Digest del comprobante, antes de agregar la firma (equivale al transform enveloped).
	docDigest, err := digestElement(root, true)
	if err != nil {
		return nil, domain.Signing(opSign, "canonicalizar comprobante", err)
	}

	// 2) Estructura completa de ds:Signature con los digests aún vacíos.
	ids := newSignatureIDs(s.ids())
	certDigest, issuer, serial := CertDigestAndIssuerSerial(leaf)
	sig := etree.NewElement(prefixDS + ":Signature")
	sig.CreateAttr("xmlns:"+prefixDS, NamespaceDS)
	sig.CreateAttr("xmlns:"+prefixXAdES, NamespaceXAdES)
	sig.CreateAttr("Id", ids.signature)

	signedInfo, propsDigest, certRefDigest := buildSignedInfo(sig, ids, docDigest)
	sigValue := sig.CreateElement(prefixDS + ":SignatureValue")
	sigValue.CreateAttr("Id", ids.signatureValue)
	keyInfo := buildKeyInfo(sig, ids, leaf.Raw, &priv.PublicKey)
	signedProps := buildQualifyingProperties(sig, ids, s.now(), certDigest, issuer, serial)

	// La firma se calcula en contexto: los elementos heredan xmlns:ds y xmlns:etsi.
	root.AddChild(sig)

	// 3) Digests de SignedProperties y KeyInfo.
	d, err := digestElement(signedProps, false)
	if err != nil {
		return nil, domain.Signing(opSign, "canonicalizar SignedProperties", err)
	}
	propsDigest.SetText(d)
	if d, err = digestElement(keyInfo, false); err != nil {
		return nil, domain.Signing(opSign, "canonicalizar KeyInfo", err)
	}
	certRefDigest.SetText(d)

	// 4) SignatureValue = RSA-SHA1(C14N(SignedInfo)).
	canonicalSignedInfo, err := canonicalElement(signedInfo, false)
	if err != nil {
		return nil, domain.Signing(opSign, "canonicalizar SignedInfo", err)
	}
	hash := sha1.Sum(canonicalSignedInfo)
	signature, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA1, hash[:])
	if err != nil {
		return nil, domain.Signing(opSign, "firmar SignedInfo", err)
	}
	sigValue.SetText(base64.StdEncoding.EncodeToString(signature))

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, domain.Signing(opSign, "serializar XML firmado", err)
	}
	return out, nil
}

func buildSignedInfo(sig *etree.Element, ids signatureIDs, docDigest string) (signedInfo, propsDigest, certDigest *etree.Element) {
	signedInfo = sig.CreateElement(prefixDS + ":SignedInfo")
	signedInfo.CreateAttr("Id", ids.signedInfo)
	signedInfo.CreateElement(prefixDS+":CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	signedInfo.CreateElement(prefixDS+":SignatureMethod").CreateAttr("Algorithm", AlgRSASHA1)

	propsRef := signedInfo.CreateElement(prefixDS + ":Reference")
	propsRef.CreateAttr("Id", ids.signedPropsRef)
	propsRef.CreateAttr("Type", TypeSignedProps)
	propsRef.CreateAttr("URI", "#"+ids.signedProps)
	propsDigest = digestMethod(propsRef, "")

	certRef := signedInfo.CreateElement(prefixDS + ":Reference")
	certRef.CreateAttr("URI", "#"+ids.certificate)
	certDigest = digestMethod(certRef, "")

	docRef := signedInfo.CreateElement(prefixDS + ":Reference")
	docRef.CreateAttr("Id", ids.reference)
	docRef.CreateAttr("URI", "#"+ComprobanteID)
	docRef.CreateElement(prefixDS+":Transforms").
		CreateElement(prefixDS+":Transform").CreateAttr("Algorithm", TransformEnveloped)
	digestMethod(docRef, docDigest)
	return signedInfo, propsDigest, certDigest
}

// digestMethod agrega DigestMethod + DigestValue y devuelve el DigestValue.
func digestMethod(parent *etree.Element, value string) *etree.Element {
	parent.CreateElement(prefixDS+":DigestMethod").CreateAttr("Algorithm", AlgSHA1)
	dv := parent.CreateElement(prefixDS + ":DigestValue")
	dv.SetText(value)
	return dv
}

func buildKeyInfo(sig *etree.Element, ids signatureIDs, certDER []byte, pub *rsa.PublicKey) *etree.Element {
	keyInfo := sig.CreateElement(prefixDS + ":KeyInfo")
	keyInfo.CreateAttr("Id", ids.certificate)
	keyInfo.CreateElement(prefixDS+":X509Data").
		CreateElement(prefixDS+":X509Certificate").SetText(base64.StdEncoding.EncodeToString(certDER))
	rsaKey := keyInfo.CreateElement(prefixDS+":KeyValue").CreateElement(prefixDS + ":RSAKeyValue")
	rsaKey.CreateElement(prefixDS+":Modulus").SetText(base64.StdEncoding.EncodeToString(pub.N.Bytes()))
	rsaKey.CreateElement(prefixDS+":Exponent").SetText(base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()))
	return keyInfo
}

func buildQualifyingProperties(sig *etree.Element, ids signatureIDs, now time.Time, certDigest, issuer, serial string) *etree.Element {
	object := sig.CreateElement(prefixDS + ":Object")
	object.CreateAttr("Id", ids.object)
	qp := object.CreateElement(prefixXAdES + ":QualifyingProperties")
	qp.CreateAttr("Target", "#"+ids.signature)

	props := qp.CreateElement(prefixXAdES + ":SignedProperties")
	props.CreateAttr("Id", ids.signedProps)

	ssp := props.CreateElement(prefixXAdES + ":SignedSignatureProperties")
	ssp.CreateElement(prefixXAdES + ":SigningTime").SetText(now.In(sri.Location).Format(signingTimeLayout))
	certEl := ssp.CreateElement(prefixXAdES+":SigningCertificate").CreateElement(prefixXAdES + ":Cert")
	digestMethod(certEl.CreateElement(prefixXAdES+":CertDigest"), certDigest)
	issuerSerial := certEl.CreateElement(prefixXAdES + ":IssuerSerial")
	issuerSerial.CreateElement(prefixDS + ":X509IssuerName").SetText(issuer)
	issuerSerial.CreateElement(prefixDS + ":X509SerialNumber").SetText(serial)

	format := props.CreateElement(prefixXAdES+":SignedDataObjectProperties").
		CreateElement(prefixXAdES + ":DataObjectFormat")
	format.CreateAttr("ObjectReference", "#"+ids.reference)
	format.CreateElement(prefixXAdES + ":Description").SetText(dataObjectDescription)
	format.CreateElement(prefixXAdES + ":MimeType").SetText(dataObjectMimeType)
	return props
}

// ── Verificación ─────────────────────────────────────────────────────────────

// Verify recalcula los digests de todas las referencias y valida SignatureValue
// con la llave pública del certificado embebido.
func (s *DigitalSignatureService) Verify(signed []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		return domain.Signing(opVerify, "XML mal formado", err)
	}
	root := doc.Root()
	if root == nil {
		return domain.Signing(opVerify, "documento sin elemento raíz", nil)
	}
	sig := findSignature(root)
	if sig == nil {
		return domain.Signing(opVerify, "el comprobante no contiene firma", nil)
	}
	signedInfo := childByTag(sig, "SignedInfo")
	if signedInfo == nil {
		return domain.Signing(opVerify, "firma sin SignedInfo", nil)
	}

	coversRoot := false
	for _, ref := range signedInfo.ChildElements() {
		if ref.Tag != "Reference" {
			continue
		}
		uri := ref.SelectAttrValue("URI", "")
		target := findByID(root, strings.TrimPrefix(uri, "#"))
		if target == nil {
			return domain.Signing(opVerify, "referencia "+uri+" no encontrada", nil)
		}
		coversRoot = coversRoot || target == root
		got, err := digestElement(target, hasEnvelopedTransform(ref))
		if err != nil {
			return domain.Signing(opVerify, "canonicalizar "+uri, err)
		}
		dv := childByTag(ref, "DigestValue")
		if dv == nil || compactBase64(dv.Text()) != got {
			return domain.Signing(opVerify, "digest de "+uri+" no coincide", nil)
		}
	}
	if !coversRoot {
		return domain.Signing(opVerify, "la firma no cubre el comprobante", nil)
	}

	cert, err := embeddedCertificate(sig)
	if err != nil {
		return domain.Signing(opVerify, "certificado embebido inválido", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return domain.Signing(opVerify, "el certificado embebido no es RSA", nil)
	}
	sigValue := childByTag(sig, "SignatureValue")
	if sigValue == nil {
		return domain.Signing(opVerify, "firma sin SignatureValue", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(compactBase64(sigValue.Text()))
	if err != nil {
		return domain.Signing(opVerify, "SignatureValue no es base64", err)
	}
	canonicalSignedInfo, err := canonicalElement(signedInfo, false)
	if err != nil {
		return domain.Signing(opVerify, "canonicalizar SignedInfo", err)
	}
	hash := sha1.Sum(canonicalSignedInfo)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, hash[:], raw); err != nil {
		return domain.Signing(opVerify, "SignatureValue inválido", err)
	}
	return nil
}

// ── C14N en contexto ─────────────────────────────────────────────────────────

func digestElement(el *etree.Element, enveloped bool) (string, error) {
	canonical, err := canonicalElement(el, enveloped)
	if err != nil {
		return "", err
	}
	h := sha1.Sum(canonical)
	return base64.StdEncoding.EncodeToString(h[:]), nil
}

// canonicalElement aplica C14N inclusivo al subárbol de el. Las declaraciones de
// namespace heredadas de los ancestros se copian al elemento, como exige el
// modo inclusivo; enveloped quita los ds:Signature hijos directos.
func canonicalElement(el *etree.Element, enveloped bool) ([]byte, error) {
	cp := el.Copy()
	for _, ns := range inheritedNamespaces(el) {
		if cp.SelectAttr(ns.FullKey()) == nil {
			cp.CreateAttr(ns.FullKey(), ns.Value)
		}
	}
	if enveloped {
		for _, child := range cp.ChildElements() {
			if child.Tag == "Signature" {
				cp.RemoveChild(child)
			}
		}
	}
	doc := etree.NewDocument()
	doc.SetRoot(cp)
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return canonicalizeXML(raw)
}

// canonicalizeXML aplica C14N (Canonical XML 1.0) usando ucarion/c14n.
func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func inheritedNamespaces(el *etree.Element) []etree.Attr {
	var out []etree.Attr
	seen := map[string]bool{}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			isNS := a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
			if !isNS || seen[a.FullKey()] {
				continue
			}
			seen[a.FullKey()] = true
			out = append(out, a)
		}
	}
	return out
}

// ── Navegación ───────────────────────────────────────────────────────────────

func findSignature(el *etree.Element) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == "Signature" {
			return child
		}
		if found := findSignature(child); found != nil {
			return found
		}
	}
	return nil
}

func findByID(el *etree.Element, id string) *etree.Element {
	if id == "" {
		return nil
	}
	if el.SelectAttrValue("Id", "") == id || el.SelectAttrValue("id", "") == id {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func childByTag(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func hasEnvelopedTransform(ref *etree.Element) bool {
	transforms := childByTag(ref, "Transforms")
	if transforms == nil {
		return false
	}
	for _, t := range transforms.ChildElements() {
		if t.SelectAttrValue("Algorithm", "") == TransformEnveloped {
			return true
		}
	}
	return false
}

func embeddedCertificate(sig *etree.Element) (*x509.Certificate, error) {
	keyInfo := childByTag(sig, "KeyInfo")
	if keyInfo == nil {
		return nil, errors.New("firma sin KeyInfo")
	}
	data := childByTag(keyInfo, "X509Data")
	if data == nil {
		return nil, errors.New("KeyInfo sin X509Data")
	}
	certEl := childByTag(data, "X509Certificate")
	if certEl == nil {
		return nil, errors.New("X509Data sin X509Certificate")
	}
	der, err := base64.StdEncoding.DecodeString(compactBase64(certEl.Text()))
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}

// compactBase64 quita saltos de línea: otros firmadores parten el base64 cada 76 columnas.
func compactBase64(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func randomID() int {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 100000
	}
	return int(n.Int64()) + 100000
}
