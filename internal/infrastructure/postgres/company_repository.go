package postgres

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para emisores. Pasar pool o tx.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `
	id, ruc, legal_name, trade_name, head_office_address, establishment_address,
	establishment, emission_point, environment, emission_type, accounting_required,
	special_taxpayer, email, cert_path, cert_key_path, cert_password, created_at, updated_at`

// Create persiste un nuevo emisor.
func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	query := `INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.RUC, c.LegalName, c.TradeName, c.HeadOfficeAddress, c.EstablishmentAddress,
		c.Establishment, c.EmissionPoint, c.Environment, c.EmissionType, c.AccountingRequired,
		c.SpecialTaxpayer, c.Email, c.Certificate.Path, c.Certificate.KeyPath, c.Certificate.Password.Reveal(),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicate, "emisor con RUC %s", c.RUC)
		}
		return errors.Wrap(err, "insert company")
	}
	return nil
}

// GetByID obtiene un emisor por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// GetByRUC obtiene un emisor por RUC.
func (r *CompanyRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE ruc = $1`, ruc)
}

// Update actualiza el perfil de firma.
func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	query := `
		UPDATE companies
		SET legal_name = $2, trade_name = $3, head_office_address = $4, establishment_address = $5,
		    establishment = $6, emission_point = $7, environment = $8, emission_type = $9,
		    accounting_required = $10, special_taxpayer = $11, email = $12,
		    cert_path = $13, cert_key_path = $14, cert_password = $15, updated_at = $16
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		c.ID, c.LegalName, c.TradeName, c.HeadOfficeAddress, c.EstablishmentAddress,
		c.Establishment, c.EmissionPoint, c.Environment, c.EmissionType,
		c.AccountingRequired, c.SpecialTaxpayer, c.Email,
		c.Certificate.Path, c.Certificate.KeyPath, c.Certificate.Password.Reveal(), c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "update company")
	}
	if cmd.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "emisor %s", c.ID)
	}
	return nil
}

func (r *CompanyRepo) getOne(ctx context.Context, query string, arg string) (*entity.Company, error) {
	var (
		c        entity.Company
		password string
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.RUC, &c.LegalName, &c.TradeName, &c.HeadOfficeAddress, &c.EstablishmentAddress,
		&c.Establishment, &c.EmissionPoint, &c.Environment, &c.EmissionType, &c.AccountingRequired,
		&c.SpecialTaxpayer, &c.Email, &c.Certificate.Path, &c.Certificate.KeyPath, &password,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrapf(domain.ErrNotFound, "emisor %s", arg)
		}
		return nil, errors.Wrap(err, "get company")
	}
	c.Certificate.Password = entity.Secret(password)
	return &c, nil
}
