package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// DocumentHandler expone la emisión y el estado de comprobantes electrónicos (protegido).
type DocumentHandler struct {
	emit  *billing.EmitUseCase
	query *billing.DocumentQueryUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(emit *billing.EmitUseCase, query *billing.DocumentQueryUseCase) *DocumentHandler {
	return &DocumentHandler{emit: emit, query: query}
}

// Emit godoc
// @Summary      Emitir factura desde una venta finalizada
// @Description  Recorre el pipeline hasta AUTHORIZED, REJECTED o ERROR. Si el SRI no responde el comprobante queda para re-drive (202).
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmitDocumentRequest  true  "Venta"
// @Success      201   {object}  dto.DocumentResponse
// @Success      202   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.DocumentResponse
// @Security     BearerAuth
// @Router       /api/documents [post]
func (h *DocumentHandler) Emit(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_COMPANY", Message: "el token no indica el emisor"})
	}
	var in dto.EmitDocumentRequest
	if !parseBody(c, &in) {
		return nil
	}
	doc, err := h.emit.Emit(c.UserContext(), companyID, in.ToSale())
	return respondProcessed(c, doc, err)
}

// EmitCreditNote godoc
// @Summary      Emitir nota de crédito sobre una factura autorizada
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la factura original"
// @Param        body  body  dto.CreditNoteRequest  true  "Nota de crédito"
// @Success      201   {object}  dto.DocumentResponse
// @Success      202   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/documents/{id}/credit-notes [post]
func (h *DocumentHandler) EmitCreditNote(c *fiber.Ctx) error {
	// La factura original debe pertenecer al emisor del token.
	if _, err := h.query.Get(c.UserContext(), companyScope(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	var in dto.CreditNoteRequest
	if !parseBody(c, &in) {
		return nil
	}
	doc, err := h.emit.EmitCreditNote(c.UserContext(), c.Params("id"), in.ToCreditNote())
	return respondProcessed(c, doc, err)
}

// Process godoc
// @Summary      Re-drive manual de un comprobante
// @Tags         documents
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.DocumentResponse
// @Success      202  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/documents/{id}/process [post]
func (h *DocumentHandler) Process(c *fiber.Ctx) error {
	doc, err := h.query.Process(c.UserContext(), companyScope(c), c.Params("id"))
	if err == nil && doc != nil {
		return c.JSON(dto.ToDocumentResponse(doc))
	}
	return respondProcessed(c, doc, err)
}

// GetByID godoc
// @Summary      Estado del comprobante con diagnóstico y mensajes del SRI
// @Tags         documents
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.query.Get(c.UserContext(), companyScope(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// List godoc
// @Summary      Listar comprobantes del emisor
// @Tags         documents
// @Produce      json
// @Param        status      query  string  false  "Estado"
// @Param        company_id  query  string  false  "Emisor (solo admin)"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.DocumentListResponse
// @Security     BearerAuth
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	var in dto.ListDocumentsRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	in.DefaultPage()
	if err := validate.Struct(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Details: validationDetails(err)})
	}
	companyID := GetCompanyID(c)
	if scope := companyScope(c); scope == billing.AllCompanies && c.Query("company_id") != "" {
		companyID = c.Query("company_id")
	}
	docs, err := h.query.List(c.UserContext(), companyID, entity.Status(in.Status), in.Limit, in.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, *dto.ToDocumentResponse(d))
	}
	return c.JSON(dto.DocumentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	})
}

// XML godoc
// @Summary      Descargar el XML (autorizado, firmado o generado)
// @Tags         documents
// @Produce      application/xml
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/documents/{id}/xml [get]
func (h *DocumentHandler) XML(c *fiber.Ctx) error {
	data, filename, err := h.query.XML(c.UserContext(), companyScope(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return sendAttachment(c, "application/xml; charset=utf-8", filename, data)
}

// RIDE godoc
// @Summary      Descargar el RIDE en PDF
// @Tags         documents
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/documents/{id}/ride [get]
func (h *DocumentHandler) RIDE(c *fiber.Ctx) error {
	pdf, filename, err := h.query.RIDE(c.UserContext(), companyScope(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return sendAttachment(c, "application/pdf", filename, pdf)
}

// Notification godoc
// @Summary      Correo de notificación al comprador (MIME .eml)
// @Tags         documents
// @Produce      message/rfc822
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {file}    binary
// @Failure      422  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/documents/{id}/notification [get]
func (h *DocumentHandler) Notification(c *fiber.Ctx) error {
	p, err := h.query.Notification(c.UserContext(), companyScope(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return sendAttachment(c, "message/rfc822", p.AccessKey+".eml", p.MIME)
}

// Redrive godoc
// @Summary      Ejecutar una pasada de re-drive (admin)
// @Tags         documents
// @Produce      json
// @Success      200  {object}  billing.RedriveReport
// @Security     BearerAuth
// @Router       /api/redrive [post]
func (h *DocumentHandler) Redrive(c *fiber.Ctx) error {
	report, err := h.query.Redrive(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

// respondProcessed responde según el estado alcanzado. Un comprobante persistido con
// fallo transitorio se informa con 202: el re-drive lo completará.
func respondProcessed(c *fiber.Ctx, doc *entity.Document, err error) error {
	if doc == nil {
		return writeError(c, err)
	}
	resp := dto.ToDocumentResponse(doc)
	switch {
	case err != nil:
		if doc.Status == entity.StatusSigned || doc.Status == entity.StatusSubmitted {
			return c.Status(fiber.StatusAccepted).JSON(resp)
		}
		return writeError(c, err)
	case doc.Status == entity.StatusAuthorized:
		return c.Status(fiber.StatusCreated).JSON(resp)
	case doc.Status == entity.StatusRejected || doc.Status == entity.StatusError:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	default:
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}
}

func sendAttachment(c *fiber.Ctx, contentType, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
