package memory

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner entrega los almacenes tal cual: en memoria no hay rollback, un número
// reservado antes de un fallo queda como hueco.
type TxRunner struct {
	Documents repository.DocumentRepository
	Sequences repository.SequenceRepository
}

func (r *TxRunner) InTx(_ context.Context, fn func(
	docs repository.DocumentRepository,
	sequences repository.SequenceRepository,
) error) error {
	return fn(r.Documents, r.Sequences)
}
