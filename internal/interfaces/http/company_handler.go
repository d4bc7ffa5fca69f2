package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/usecase"
	"github.com/jhoicas/facturacion-sri/internal/domain"
)

// CompanyHandler maneja las peticiones HTTP para el perfil del emisor.
type CompanyHandler struct {
	uc *usecase.CompanyUseCase
}

// NewCompanyHandler construye el handler inyectando el caso de uso.
func NewCompanyHandler(uc *usecase.CompanyUseCase) *CompanyHandler {
	return &CompanyHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar emisor
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCompanyRequest  true  "Datos del emisor"
// @Success      201   {object}  dto.CompanyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/companies [post]
func (h *CompanyHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCompanyRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener emisor por ID
// @Tags         companies
// @Produce      json
// @Param        id   path  string  true  "ID del emisor"
// @Success      200  {object}  dto.CompanyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/companies/{id} [get]
func (h *CompanyHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if scope := companyScope(c); scope != "" && scope != id {
		return writeError(c, domain.ErrForbidden)
	}
	out, err := h.uc.GetByID(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateCertificate godoc
// @Summary      Reemplazar el certificado de firma del emisor
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del emisor"
// @Param        body  body  dto.CertificateRequest  true  "Referencia al certificado"
// @Success      200   {object}  dto.CompanyResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/companies/{id}/certificate [put]
func (h *CompanyHandler) UpdateCertificate(c *fiber.Ctx) error {
	var in dto.CertificateRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.UpdateCertificate(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
