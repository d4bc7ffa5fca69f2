package memory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyStore)(nil)

type CompanyStore struct {
	mu   sync.RWMutex
	byID map[string]entity.Company
}

func NewCompanyStore(companies ...*entity.Company) *CompanyStore {
	s := &CompanyStore{byID: make(map[string]entity.Company)}
	for _, c := range companies {
		s.byID[c.ID] = *c
	}
	return s
}

func (s *CompanyStore) Create(_ context.Context, c *entity.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.byID {
		if other.ID == c.ID || other.RUC == c.RUC {
			return errors.Wrapf(domain.ErrDuplicate, "emisor con RUC %s", c.RUC)
		}
	}
	s.byID[c.ID] = *c
	return nil
}

func (s *CompanyStore) GetByID(_ context.Context, id string) (*entity.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "emisor %s", id)
	}
	return &c, nil
}

func (s *CompanyStore) GetByRUC(_ context.Context, ruc string) (*entity.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID {
		if c.RUC == ruc {
			return &c, nil
		}
	}
	return nil, errors.Wrapf(domain.ErrNotFound, "emisor %s", ruc)
}

func (s *CompanyStore) Update(_ context.Context, c *entity.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "emisor %s", c.ID)
	}
	s.byID[c.ID] = *c
	return nil
}
