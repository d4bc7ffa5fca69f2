package usecase

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// CertificateInvalidator descarta el certificado cacheado de un emisor.
type CertificateInvalidator interface {
	Invalidate(company *entity.Company)
}

// CompanyUseCase aplica reglas de negocio para emisores (casos de uso).
type CompanyUseCase struct {
	repo  repository.CompanyRepository
	certs CertificateInvalidator
	now   func() time.Time
}

// NewCompanyUseCase construye el caso de uso con el puerto de persistencia.
// certs puede ser nil si no hay caché de certificados.
func NewCompanyUseCase(repo repository.CompanyRepository, certs CertificateInvalidator) *CompanyUseCase {
	return &CompanyUseCase{repo: repo, certs: certs, now: time.Now}
}

// Create registra un emisor. Devuelve domain.ErrDuplicate si el RUC ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if err := pkgsri.ValidateRUC(in.RUC); err != nil {
		return nil, domain.InvalidInput("company.Create", "RUC inválido: %v", err)
	}
	if !validCode(in.Establishment) || !validCode(in.EmissionPoint) {
		return nil, domain.InvalidInput("company.Create", "establecimiento y punto de emisión deben tener 3 dígitos")
	}
	if in.Environment != "" && in.Environment != pkgsri.EnvironmentTest && in.Environment != pkgsri.EnvironmentProduction {
		return nil, domain.InvalidInput("company.Create", "ambiente desconocido %q", in.Environment)
	}

	existing, err := uc.repo.GetByRUC(ctx, in.RUC)
	switch {
	case err == nil && existing != nil:
		return nil, errors.Wrapf(domain.ErrDuplicate, "emisor con RUC %s", in.RUC)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, errors.Wrap(err, "company: buscar por RUC")
	}

	now := uc.now()
	company := &entity.Company{
		ID:                   uuid.New().String(),
		RUC:                  in.RUC,
		LegalName:            in.LegalName,
		TradeName:            in.TradeName,
		HeadOfficeAddress:    in.HeadOfficeAddress,
		EstablishmentAddress: in.EstablishmentAddress,
		Establishment:        in.Establishment,
		EmissionPoint:        in.EmissionPoint,
		Environment:          in.Environment,
		EmissionType:         pkgsri.EmissionNormal,
		AccountingRequired:   in.AccountingRequired,
		SpecialTaxpayer:      in.SpecialTaxpayer,
		Email:                in.Email,
		Certificate:          toCertificateRef(in.Certificate),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// GetByID obtiene un emisor por ID.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// UpdateCertificate reemplaza la referencia al certificado de firma y descarta el cacheado.
func (uc *CompanyUseCase) UpdateCertificate(ctx context.Context, id string, in dto.CertificateRequest) (*dto.CompanyResponse, error) {
	if in.Path == "" {
		return nil, domain.DataIncomplete("company.UpdateCertificate", "ruta del certificado")
	}
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if uc.certs != nil {
		uc.certs.Invalidate(company)
	}
	company.Certificate = toCertificateRef(in)
	company.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

func toCertificateRef(in dto.CertificateRequest) entity.CertificateRef {
	return entity.CertificateRef{
		Path:     in.Path,
		KeyPath:  in.KeyPath,
		Password: entity.Secret(in.Password),
	}
}

func validCode(s string) bool {
	return len(s) == 3 && pkgsri.IsDigits(s)
}

func entityToCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	if c == nil {
		return nil
	}
	return &dto.CompanyResponse{
		ID:                   c.ID,
		RUC:                  c.RUC,
		LegalName:            c.LegalName,
		TradeName:            c.TradeName,
		HeadOfficeAddress:    c.HeadOfficeAddress,
		EstablishmentAddress: c.EstablishmentAddress,
		Establishment:        c.Establishment,
		EmissionPoint:        c.EmissionPoint,
		Environment:          c.Environment,
		AccountingRequired:   c.AccountingRequired,
		SpecialTaxpayer:      c.SpecialTaxpayer,
		Email:                c.Email,
		HasCertificate:       c.Certificate.Path != "",
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}
