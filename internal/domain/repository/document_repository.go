package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia de comprobantes electrónicos.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	// Update persiste estado, artefactos (XML generado/firmado/autorizado, RIDE),
	// mensajes del SRI y el último error. Se llama tras cada transición.
	Update(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*entity.Document, error)
	// ListDueForRedrive devuelve documentos SIGNED o SUBMITTED cuyo NextRetryAt ya venció.
	ListDueForRedrive(ctx context.Context, now time.Time, limit int) ([]*entity.Document, error)
	ListByCompany(ctx context.Context, companyID string, status entity.Status, limit, offset int) ([]*entity.Document, error)
}
