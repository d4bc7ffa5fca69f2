package http

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
)

var validate = validator.New()

// parseBody decodifica y valida el cuerpo. Devuelve false si ya respondió con error.
func parseBody(c *fiber.Ctx, out any) bool {
	if err := c.BodyParser(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		return false
	}
	if err := validate.Struct(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "datos inválidos",
			Details: validationDetails(err),
		})
		return false
	}
	return true
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Namespace()+": "+fe.Tag())
	}
	return out
}

// writeError traduce los errores de dominio a la respuesta HTTP.
func writeError(c *fiber.Ctx, err error) error {
	status, code := statusOf(err)
	resp := dto.ErrorResponse{Code: code, Message: messageOf(err), Details: domain.DetailsOf(err)}
	return c.Status(status).JSON(resp)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, "CANCELLED"
	}

	kind := domain.KindOf(err)
	switch kind {
	case domain.KindInvalidInput:
		return fiber.StatusBadRequest, string(kind)
	case domain.KindDataIncomplete, domain.KindArithmeticMismatch, domain.KindSchemaValidation,
		domain.KindInvalidCertificate, domain.KindRejected:
		return fiber.StatusUnprocessableEntity, string(kind)
	case domain.KindStateTransition:
		return fiber.StatusConflict, string(kind)
	case domain.KindTransportExhausted:
		return fiber.StatusServiceUnavailable, string(kind)
	case domain.KindSigning, domain.KindRender:
		return fiber.StatusInternalServerError, string(kind)
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// messageOf evita filtrar trazas internas: solo los errores de dominio exponen su mensaje.
func messageOf(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrForbidden, domain.ErrUnauthorized, domain.ErrDuplicate, domain.ErrConflict} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "error interno"
}
