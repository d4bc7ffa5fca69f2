package entity

import "time"

// Company es el perfil de firma del emisor (contribuyente SRI).
type Company struct {
	ID                   string
	RUC                  string
	LegalName            string // razonSocial
	TradeName            string // nombreComercial
	HeadOfficeAddress    string // dirMatriz
	EstablishmentAddress string // dirEstablecimiento
	Establishment        string
	EmissionPoint        string
	Environment          string // vacío = ambiente de la configuración global
	EmissionType         string
	AccountingRequired   bool   // obligadoContabilidad
	SpecialTaxpayer      string // número de resolución de contribuyente especial
	Email                string
	Certificate          CertificateRef
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CertificateRef apunta al certificado de firma. Solo el firmador lee su contenido.
type CertificateRef struct {
	Path     string // .p12/.pfx o certificado PEM
	KeyPath  string // llave PEM (opcional, PKCS#8 cifrada admitida)
	Password Secret
}

// Secret es un valor sensible que nunca se serializa ni se imprime.
type Secret string

const redacted = "******"

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

// MarshalText cubre JSON y los loggers que serializan vía encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Reveal devuelve el valor real; reservado al cargador de certificados.
func (s Secret) Reveal() string { return string(s) }
