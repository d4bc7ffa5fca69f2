//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

type PostgresSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	company   *entity.Company
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("se omite la prueba de integración en modo short")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("facturacion_sri"),
		tcpostgres.WithUsername("sri"),
		tcpostgres.WithPassword("sri"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.pool, err = NewPool(ctx, config.DBConfig{DatabaseURL: dsn}, nil)
	s.Require().NoError(err)
	s.Require().NoError(Migrate(ctx, s.pool))
	s.Require().NoError(Migrate(ctx, s.pool), "las migraciones deben ser idempotentes")
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `TRUNCATE sri_documents, sri_sequences, companies CASCADE`)
	s.Require().NoError(err)

	now := time.Date(2026, 2, 22, 15, 0, 0, 0, time.UTC)
	s.company = &entity.Company{
		ID:                 uuid.New().String(),
		RUC:                "1791234567001",
		LegalName:          "Comercial Andina S.A.",
		HeadOfficeAddress:  "Av. Amazonas N34-120, Quito",
		Establishment:      "001",
		EmissionPoint:      "001",
		EmissionType:       pkgsri.EmissionNormal,
		AccountingRequired: true,
		Certificate:        entity.CertificateRef{Path: "/certs/firma.p12", Password: entity.Secret("s3creta")},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.Require().NoError(NewCompanyRepository(s.pool).Create(ctx, s.company))
}

func (s *PostgresSuite) seqKey() entity.SequenceKey {
	return entity.SequenceKey{CompanyID: s.company.ID, Establishment: "001", EmissionPoint: "001", DocType: pkgsri.DocFactura}
}

func (s *PostgresSuite) TestCompany_RoundTrip() {
	ctx := context.Background()
	repo := NewCompanyRepository(s.pool)

	got, err := repo.GetByRUC(ctx, "1791234567001")
	s.Require().NoError(err)
	s.Equal(s.company.ID, got.ID)
	s.Equal("s3creta", got.Certificate.Password.Reveal())
	s.True(got.AccountingRequired)

	s.ErrorIs(repo.Create(ctx, s.company), domain.ErrDuplicate)

	_, err = repo.GetByID(ctx, uuid.New().String())
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresSuite) TestSequence_ConcurrenciaSinDuplicados() {
	ctx := context.Background()
	repo := NewSequenceRepository(s.pool)
	const workers = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.Reserve(ctx, s.seqKey())
			s.Require().NoError(err)
			mu.Lock()
			defer mu.Unlock()
			s.False(seen[n], "secuencial %d duplicado", n)
			seen[n] = true
		}()
	}
	wg.Wait()

	s.Len(seen, workers)
	current, err := repo.Current(ctx, s.seqKey())
	s.Require().NoError(err)
	s.Equal(int64(workers), current)
}

func (s *PostgresSuite) TestSequence_TuplasIndependientes() {
	ctx := context.Background()
	repo := NewSequenceRepository(s.pool)

	n, err := repo.Reserve(ctx, s.seqKey())
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	nc := s.seqKey()
	nc.DocType = pkgsri.DocNotaCredito
	n, err = repo.Reserve(ctx, nc)
	s.Require().NoError(err)
	s.Equal(int64(1), n, "cada tipo de comprobante tiene su propio contador")
}

func (s *PostgresSuite) TestSequence_Agotado() {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sri_sequences (company_id, establishment, emission_point, doc_type, last_value)
		VALUES ($1, '001', '001', '01', 999999999)`, s.company.ID)
	s.Require().NoError(err)

	_, err = NewSequenceRepository(s.pool).Reserve(ctx, s.seqKey())
	s.ErrorIs(err, domain.ErrInvalidInput)
}

func (s *PostgresSuite) TestSequence_RollbackDevuelveElNumero() {
	ctx := context.Background()
	runner := NewTxRunner(s.pool, nil)

	err := runner.InTx(ctx, func(_ repository.DocumentRepository, seqs repository.SequenceRepository) error {
		_, err := seqs.Reserve(ctx, s.seqKey())
		s.Require().NoError(err)
		return domain.InvalidInput("test", "fallo forzado")
	})
	s.ErrorIs(err, domain.ErrInvalidInput)

	current, err := NewSequenceRepository(s.pool).Current(ctx, s.seqKey())
	s.Require().NoError(err)
	s.Equal(int64(0), current)
}

func (s *PostgresSuite) TestDocument_CicloCompleto() {
	ctx := context.Background()
	repo := NewDocumentRepository(s.pool)
	now := time.Date(2026, 2, 22, 15, 0, 0, 0, time.UTC)

	doc := &entity.Document{
		CompanyID:     s.company.ID,
		SaleID:        "venta-1",
		DocType:       pkgsri.DocFactura,
		Environment:   pkgsri.EnvironmentTest,
		EmissionType:  pkgsri.EmissionNormal,
		Establishment: "001",
		EmissionPoint: "001",
		IssueDate:     now,
		Status:        entity.StatusPending,
		Payload: entity.DocumentPayload{
			Buyer: entity.Buyer{IDType: pkgsri.IDTypeFinalConsumer, ID: pkgsri.FinalConsumerID, Name: "CONSUMIDOR FINAL"},
			Items: []entity.LineItem{{Code: "P001", Description: "Filtro", Quantity: decimal.NewFromInt(2),
				UnitPrice: decimal.NewFromInt(10), TaxRateCode: pkgsri.IVA12}},
			Totals: entity.Totals{GrandTotal: decimal.RequireFromString("22.40")},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(repo.Create(ctx, doc))
	s.NotEmpty(doc.ID)

	retryAt := now.Add(-time.Minute)
	doc.Sequence = 1
	doc.AccessKey = "2202202601179123456700110010010000000011234567811"
	doc.Status = entity.StatusSigned
	doc.SignedXML = []byte("<factura/>")
	doc.AuthorityMessages = []entity.AuthorityMessage{{Identifier: "35", Message: "ARCHIVO NO CUMPLE ESTRUCTURA XML", Type: "ERROR"}}
	doc.RecordFailure(entity.StageError{Stage: entity.StatusSigned, Kind: string(domain.KindTransportExhausted), Message: "timeout", At: now}, &retryAt)
	s.Require().NoError(repo.Update(ctx, doc))

	got, err := repo.GetByAccessKey(ctx, doc.AccessKey)
	s.Require().NoError(err)
	s.Equal(entity.StatusSigned, got.Status)
	s.Equal([]byte("<factura/>"), got.SignedXML)
	s.Nil(got.GeneratedXML)
	s.True(decimal.RequireFromString("22.40").Equal(got.Payload.Totals.GrandTotal))
	s.Require().NotNil(got.LastError)
	s.Equal("timeout", got.LastError.Message)
	s.Len(got.AuthorityMessages, 1)

	due, err := repo.ListDueForRedrive(ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(doc.ID, due[0].ID)

	listed, err := repo.ListByCompany(ctx, s.company.ID, entity.StatusAuthorized, 10, 0)
	s.Require().NoError(err)
	s.Empty(listed)
	listed, err = repo.ListByCompany(ctx, s.company.ID, "", 10, 0)
	s.Require().NoError(err)
	s.Len(listed, 1)

	_, err = repo.GetByID(ctx, uuid.New().String())
	s.ErrorIs(err, domain.ErrNotFound)
}
