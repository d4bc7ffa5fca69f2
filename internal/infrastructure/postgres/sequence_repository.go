package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo guarda los contadores en sri_sequences. Pasar pool o tx.
type SequenceRepo struct {
	q Querier
}

func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Reserve incrementa y devuelve el contador en una sola sentencia. La fila queda
// bloqueada hasta el fin de la transacción del llamador, de modo que dos reservas
// concurrentes sobre la misma tupla se serializan.
func (r *SequenceRepo) Reserve(ctx context.Context, key entity.SequenceKey) (int64, error) {
	const query = `
		INSERT INTO sri_sequences (company_id, establishment, emission_point, doc_type, last_value)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (company_id, establishment, emission_point, doc_type)
		DO UPDATE SET last_value = sri_sequences.last_value + 1, updated_at = now()
		RETURNING last_value`
	var next int64
	err := r.q.QueryRow(ctx, query, key.CompanyID, key.Establishment, key.EmissionPoint, key.DocType).Scan(&next)
	if err != nil {
		if isCheckViolation(err) {
			return 0, domain.InvalidInput("postgres.Reserve",
				"secuencial agotado para %s-%s tipo %s (máximo %d)", key.Establishment, key.EmissionPoint, key.DocType, pkgsri.MaxSequence)
		}
		return 0, errors.Wrap(err, "reserve sequence")
	}
	return next, nil
}

// Current devuelve el último número emitido, 0 si la tupla aún no existe.
func (r *SequenceRepo) Current(ctx context.Context, key entity.SequenceKey) (int64, error) {
	const query = `
		SELECT last_value FROM sri_sequences
		WHERE company_id = $1 AND establishment = $2 AND emission_point = $3 AND doc_type = $4`
	var current int64
	err := r.q.QueryRow(ctx, query, key.CompanyID, key.Establishment, key.EmissionPoint, key.DocType).Scan(&current)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "current sequence")
	}
	return current, nil
}

// isCheckViolation detecta el CHECK de rango de last_value (23514).
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
