package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
)

type recordingInvalidator struct{ invalidated []string }

func (r *recordingInvalidator) Invalidate(c *entity.Company) {
	r.invalidated = append(r.invalidated, c.ID)
}

func validCompanyRequest() dto.CreateCompanyRequest {
	return dto.CreateCompanyRequest{
		RUC:               "1791234567001",
		LegalName:         "Distribuidora Andina S.A.",
		HeadOfficeAddress: "Av. Amazonas N34-120, Quito",
		Establishment:     "001",
		EmissionPoint:     "001",
		Environment:       "1",
		Email:             "facturacion@andina.ec",
		Certificate: dto.CertificateRequest{
			Path:     "/certs/andina.p12",
			Password: "clave-super-secreta",
		},
	}
}

func TestCompanyUseCase_Create(t *testing.T) {
	repo := memory.NewCompanyStore()
	uc := NewCompanyUseCase(repo, nil)

	resp, err := uc.Create(context.Background(), validCompanyRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.True(t, resp.HasCertificate)

	stored, err := repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "clave-super-secreta", stored.Certificate.Password.Reveal())
	assert.Equal(t, "1", stored.EmissionType)

	_, err = uc.Create(context.Background(), validCompanyRequest())
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestCompanyUseCase_CreateInvalido(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *dto.CreateCompanyRequest)
	}{
		{"RUC corto", func(r *dto.CreateCompanyRequest) { r.RUC = "179123" }},
		{"RUC sin establecimiento", func(r *dto.CreateCompanyRequest) { r.RUC = "1791234567000" }},
		{"establecimiento de 2 dígitos", func(r *dto.CreateCompanyRequest) { r.Establishment = "01" }},
		{"punto de emisión no numérico", func(r *dto.CreateCompanyRequest) { r.EmissionPoint = "A01" }},
		{"ambiente desconocido", func(r *dto.CreateCompanyRequest) { r.Environment = "3" }},
	}
	uc := NewCompanyUseCase(memory.NewCompanyStore(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCompanyRequest()
			tt.mutate(&req)
			_, err := uc.Create(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCompanyUseCase_UpdateCertificate(t *testing.T) {
	certs := &recordingInvalidator{}
	uc := NewCompanyUseCase(memory.NewCompanyStore(), certs)
	created, err := uc.Create(context.Background(), validCompanyRequest())
	require.NoError(t, err)

	resp, err := uc.UpdateCertificate(context.Background(), created.ID, dto.CertificateRequest{
		Path: "/certs/andina-2027.p12", Password: "nueva",
	})
	require.NoError(t, err)
	assert.True(t, resp.HasCertificate)
	assert.Equal(t, []string{created.ID}, certs.invalidated, "el certificado anterior sale de la caché")

	_, err = uc.UpdateCertificate(context.Background(), created.ID, dto.CertificateRequest{})
	assert.ErrorIs(t, err, domain.ErrDataIncomplete)

	_, err = uc.UpdateCertificate(context.Background(), "no-existe", dto.CertificateRequest{Path: "/x.p12"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
