package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentStore)(nil)

// DocumentStore guarda copias de los comprobantes; los llamadores nunca comparten
// el puntero almacenado.
type DocumentStore struct {
	mu   sync.RWMutex
	byID map[string]*entity.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{byID: make(map[string]*entity.Document)}
}

func (s *DocumentStore) Create(_ context.Context, d *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if _, ok := s.byID[d.ID]; ok {
		return errors.Wrapf(domain.ErrDuplicate, "comprobante %s", d.ID)
	}
	if err := s.checkAccessKey(d); err != nil {
		return err
	}
	s.byID[d.ID] = clone(d)
	return nil
}

func (s *DocumentStore) Update(_ context.Context, d *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[d.ID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "comprobante %s", d.ID)
	}
	if err := s.checkAccessKey(d); err != nil {
		return err
	}
	s.byID[d.ID] = clone(d)
	return nil
}

func (s *DocumentStore) GetByID(_ context.Context, id string) (*entity.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "comprobante %s", id)
	}
	return clone(d), nil
}

func (s *DocumentStore) GetByAccessKey(_ context.Context, accessKey string) (*entity.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.byID {
		if d.AccessKey == accessKey {
			return clone(d), nil
		}
	}
	return nil, errors.Wrapf(domain.ErrNotFound, "clave de acceso %s", accessKey)
}

func (s *DocumentStore) ListDueForRedrive(_ context.Context, now time.Time, limit int) ([]*entity.Document, error) {
	return s.list(limit, 0, func(d *entity.Document) bool {
		return (d.Status == entity.StatusSigned || d.Status == entity.StatusSubmitted) &&
			d.NextRetryAt != nil && !d.NextRetryAt.After(now)
	}, func(a, b *entity.Document) bool { return a.NextRetryAt.Before(*b.NextRetryAt) }), nil
}

func (s *DocumentStore) ListByCompany(_ context.Context, companyID string, status entity.Status, limit, offset int) ([]*entity.Document, error) {
	return s.list(limit, offset, func(d *entity.Document) bool {
		return d.CompanyID == companyID && (status == "" || d.Status == status)
	}, func(a, b *entity.Document) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (s *DocumentStore) list(limit, offset int, keep func(*entity.Document) bool, less func(a, b *entity.Document) bool) []*entity.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Document
	for _, d := range s.byID {
		if keep(d) {
			out = append(out, clone(d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// checkAccessKey replica el índice único de la clave de acceso.
func (s *DocumentStore) checkAccessKey(d *entity.Document) error {
	if d.AccessKey == "" {
		return nil
	}
	for id, other := range s.byID {
		if id != d.ID && other.AccessKey == d.AccessKey {
			return errors.Wrapf(domain.ErrDuplicate, "clave de acceso %s", d.AccessKey)
		}
	}
	return nil
}

func clone(d *entity.Document) *entity.Document {
	cp := *d
	cp.AuthorityMessages = append([]entity.AuthorityMessage(nil), d.AuthorityMessages...)
	if d.LastError != nil {
		le := *d.LastError
		cp.LastError = &le
	}
	return &cp
}
