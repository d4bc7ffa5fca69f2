package billing

import (
	"context"
	"crypto/tls"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// DocumentBuilder construye el XML sin firmar del comprobante (infrastructure/sri).
type DocumentBuilder interface {
	BuildDocument(doc *entity.Document, company *entity.Company) ([]byte, error)
}

// SchemaValidator valida el XML contra el esquema del tipo de comprobante.
// Devuelve nil o un error de tipo SCHEMA_VALIDATION con todas las violaciones.
type SchemaValidator interface {
	Validate(xml []byte) error
}

// Signer aplica la firma XAdES-BES envolvente.
type Signer interface {
	Sign(xml []byte, cert tls.Certificate) ([]byte, error)
}

// CertificateSource entrega el certificado de firma del emisor. El resultado es
// estado compartido de solo lectura.
type CertificateSource interface {
	Certificate(ctx context.Context, company *entity.Company) (tls.Certificate, error)
}

// AuthorityClient es el cliente de los servicios web del SRI, con reintentos propios.
type AuthorityClient interface {
	Submit(ctx context.Context, signedXML []byte) (*entity.SubmissionResult, error)
	QueryAuthorization(ctx context.Context, accessKey string) (*entity.AuthorizationResult, error)
	AwaitAuthorization(ctx context.Context, accessKey string) (*entity.AuthorizationResult, error)
}

// Renderer genera el RIDE (PDF) de un comprobante autorizado.
type Renderer interface {
	Render(ctx context.Context, doc *entity.Document, company *entity.Company) ([]byte, error)
}
