package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// SequenceRepository es el dueño exclusivo de los contadores de secuenciales.
// Reserve incrementa y lee en una sola operación indivisible: dos llamadas concurrentes
// sobre la misma tupla nunca obtienen el mismo número. Un número reservado y no usado
// se pierde (se admiten huecos, nunca duplicados).
type SequenceRepository interface {
	Reserve(ctx context.Context, key entity.SequenceKey) (int64, error)
	// Current devuelve el último número emitido, 0 si la tupla aún no existe.
	Current(ctx context.Context, key entity.SequenceKey) (int64, error)
}

// TxRunner ejecuta fn con repositorios atados a una misma transacción: la reserva
// del secuencial y la persistencia del comprobante se confirman o se descartan juntas.
type TxRunner interface {
	InTx(ctx context.Context, fn func(docs DocumentRepository, sequences SequenceRepository) error) error
}
