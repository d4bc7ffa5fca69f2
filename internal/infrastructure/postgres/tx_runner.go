package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool      *pgxpool.Pool
	sequences repository.SequenceRepository
}

// NewTxRunner construye el runner con el pool. Si sequences no es nil (SEQUENCE_BACKEND=redis)
// se entrega ese almacén en lugar del contador transaccional de sri_sequences.
func NewTxRunner(pool *pgxpool.Pool, sequences repository.SequenceRepository) *TxRunner {
	return &TxRunner{pool: pool, sequences: sequences}
}

// InTx inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) InTx(ctx context.Context, fn func(
	docs repository.DocumentRepository,
	sequences repository.SequenceRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seqs repository.SequenceRepository = NewSequenceRepository(tx)
	if r.sequences != nil {
		seqs = r.sequences
	}

	if err := fn(NewDocumentRepository(tx), seqs); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}
