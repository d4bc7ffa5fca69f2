package billing

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

const opReserve = "billing.ReserveSequence"

// SequenceController valida la tupla y delega la reserva atómica en el almacén.
// Un número reservado y no usado queda como hueco; nunca se reutiliza.
type SequenceController struct {
	store repository.SequenceRepository
}

func NewSequenceController(store repository.SequenceRepository) *SequenceController {
	return &SequenceController{store: store}
}

// Reserve devuelve el siguiente secuencial de la tupla (1..999999999).
func (c *SequenceController) Reserve(ctx context.Context, key entity.SequenceKey) (int64, error) {
	if err := validateSequenceKey(key); err != nil {
		return 0, err
	}
	n, err := c.store.Reserve(ctx, key)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > pkgsri.MaxSequence {
		return 0, domain.InvalidInput(opReserve, "secuencial %d fuera de rango", n)
	}
	return n, nil
}

// Current devuelve el último secuencial emitido de la tupla.
func (c *SequenceController) Current(ctx context.Context, key entity.SequenceKey) (int64, error) {
	if err := validateSequenceKey(key); err != nil {
		return 0, err
	}
	return c.store.Current(ctx, key)
}

func validateSequenceKey(key entity.SequenceKey) error {
	switch {
	case key.CompanyID == "":
		return domain.InvalidInput(opReserve, "emisor requerido")
	case len(key.Establishment) != 3 || !pkgsri.IsDigits(key.Establishment):
		return domain.InvalidInput(opReserve, "establecimiento %q debe tener 3 dígitos", key.Establishment)
	case len(key.EmissionPoint) != 3 || !pkgsri.IsDigits(key.EmissionPoint):
		return domain.InvalidInput(opReserve, "punto de emisión %q debe tener 3 dígitos", key.EmissionPoint)
	case !pkgsri.IsKnownDocType(key.DocType):
		return domain.InvalidInput(opReserve, "tipo de comprobante %q desconocido", key.DocType)
	}
	return nil
}
