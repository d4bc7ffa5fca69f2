// Package memory implementa los puertos de persistencia en memoria, para pruebas y
// para APP_ENV=development sin base de datos. No sobrevive a un reinicio.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

var _ repository.SequenceRepository = (*SequenceStore)(nil)

// SequenceStore guarda los contadores en un mapa protegido por mutex.
type SequenceStore struct {
	mu       sync.Mutex
	counters map[entity.SequenceKey]int64
}

func NewSequenceStore() *SequenceStore {
	return &SequenceStore{counters: make(map[entity.SequenceKey]int64)}
}

// Reserve incrementa y devuelve el contador de la tupla.
func (s *SequenceStore) Reserve(_ context.Context, key entity.SequenceKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.counters[key] + 1
	if next > pkgsri.MaxSequence {
		return 0, domain.InvalidInput("memory.Reserve",
			"secuencial agotado para %s-%s tipo %s", key.Establishment, key.EmissionPoint, key.DocType)
	}
	s.counters[key] = next
	return next, nil
}

// Current devuelve el último número emitido, 0 si la tupla aún no existe.
func (s *SequenceStore) Current(_ context.Context, key entity.SequenceKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

// Seed fija el último número emitido de una tupla (migraciones desde otro sistema, pruebas).
func (s *SequenceStore) Seed(key entity.SequenceKey, last int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = last
}
