package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

var key = entity.SequenceKey{CompanyID: "emp-1", Establishment: "001", EmissionPoint: "001", DocType: pkgsri.DocFactura}

func TestSequenceStore_ConcurrenciaSinDuplicados(t *testing.T) {
	s := NewSequenceStore()
	const workers = 200

	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Reserve(context.Background(), key)
			assert.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for n := range results {
		assert.False(t, seen[n], "secuencial %d duplicado", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "falta el secuencial %d", i)
	}
}

func TestSequenceStore_TuplasIndependientes(t *testing.T) {
	s := NewSequenceStore()
	other := key
	other.EmissionPoint = "002"

	n, err := s.Reserve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.Reserve(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSequenceStore_Agotado(t *testing.T) {
	s := NewSequenceStore()
	s.Seed(key, pkgsri.MaxSequence)

	_, err := s.Reserve(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	current, err := s.Current(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, pkgsri.MaxSequence, current, "un fallo no consume el contador")
}

func TestDocumentStore_CopiasIndependientes(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	doc := &entity.Document{CompanyID: "emp-1", Status: entity.StatusPending}
	require.NoError(t, s.Create(ctx, doc))
	require.NotEmpty(t, doc.ID)

	doc.Status = entity.StatusGenerated
	stored, err := s.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, stored.Status, "mutar el original no altera lo guardado")
}

func TestDocumentStore_ClaveDeAccesoUnica(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	require.NoError(t, s.Create(ctx, &entity.Document{AccessKey: "k1"}))

	err := s.Create(ctx, &entity.Document{AccessKey: "k1"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = s.GetByAccessKey(ctx, "k2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDueForRedrive(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	now := time.Date(2026, 2, 22, 15, 0, 0, 0, time.UTC)
	past, later, future := now.Add(-2*time.Minute), now.Add(-time.Minute), now.Add(time.Minute)

	require.NoError(t, s.Create(ctx, &entity.Document{ID: "b", Status: entity.StatusSubmitted, NextRetryAt: &later}))
	require.NoError(t, s.Create(ctx, &entity.Document{ID: "a", Status: entity.StatusSigned, NextRetryAt: &past}))
	require.NoError(t, s.Create(ctx, &entity.Document{ID: "c", Status: entity.StatusSigned, NextRetryAt: &future}))
	require.NoError(t, s.Create(ctx, &entity.Document{ID: "d", Status: entity.StatusAuthorized, NextRetryAt: &past}))

	due, err := s.ListDueForRedrive(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].ID)
	assert.Equal(t, "b", due[1].ID)

	due, err = s.ListDueForRedrive(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}
