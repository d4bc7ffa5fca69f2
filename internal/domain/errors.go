package domain

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Errores de dominio genéricos usados por repositorios y handlers.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Kind clasifica los fallos del pipeline de facturación electrónica.
type Kind string

const (
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindDataIncomplete     Kind = "DATA_INCOMPLETE"
	KindArithmeticMismatch Kind = "ARITHMETIC_MISMATCH"
	KindSchemaValidation   Kind = "SCHEMA_VALIDATION"
	KindInvalidCertificate Kind = "INVALID_CERTIFICATE"
	KindSigning            Kind = "SIGNING"
	KindTransportExhausted Kind = "TRANSPORT_EXHAUSTED"
	KindRender             Kind = "RENDER"
	KindStateTransition    Kind = "STATE_TRANSITION"
	KindRejected           Kind = "REJECTED"
)

// Error es el error tipado del pipeline. Details conserva el diagnóstico original
// de la etapa que falló (violaciones de esquema, mensajes del SRI, campos faltantes).
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.Details, "; "))
		sb.WriteString("]")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is compara por Kind, de modo que errors.Is(err, ErrSchemaValidation) funcione
// con cualquier instancia de ese tipo.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Op == ""
}

// Centinelas por tipo, para usar con errors.Is.
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrDataIncomplete     = &Error{Kind: KindDataIncomplete}
	ErrArithmeticMismatch = &Error{Kind: KindArithmeticMismatch}
	ErrSchemaValidation   = &Error{Kind: KindSchemaValidation}
	ErrInvalidCertificate = &Error{Kind: KindInvalidCertificate}
	ErrSigning            = &Error{Kind: KindSigning}
	ErrTransportExhausted = &Error{Kind: KindTransportExhausted}
	ErrRender             = &Error{Kind: KindRender}
	ErrStateTransition    = &Error{Kind: KindStateTransition}
	ErrRejected           = &Error{Kind: KindRejected}
)

// KindOf devuelve el Kind del primer *Error en la cadena, o "" si no hay ninguno.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// DetailsOf devuelve los detalles diagnósticos del primer *Error en la cadena.
func DetailsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// IsRetryable indica si el fallo es transitorio y el documento admite re-drive.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransportExhausted
}

// ── Constructores ─────────────────────────────────────────────────────────────

func InvalidInput(op, format string, args ...any) error {
	return errors.WithStack(&Error{Kind: KindInvalidInput, Op: op, Message: fmt.Sprintf(format, args...)})
}

func DataIncomplete(op string, missing ...string) error {
	return errors.WithStack(&Error{
		Kind:    KindDataIncomplete,
		Op:      op,
		Message: "faltan campos obligatorios",
		Details: missing,
	})
}

func ArithmeticMismatch(op, field, expected, got string) error {
	return errors.WithStack(&Error{
		Kind:    KindArithmeticMismatch,
		Op:      op,
		Message: fmt.Sprintf("%s no cuadra: calculado %s, recibido %s", field, expected, got),
	})
}

func SchemaValidation(op string, violations []string) error {
	return errors.WithStack(&Error{
		Kind:    KindSchemaValidation,
		Op:      op,
		Message: fmt.Sprintf("%d violaciones de esquema", len(violations)),
		Details: violations,
	})
}

func InvalidCertificate(op string, cause error) error {
	return errors.WithStack(&Error{Kind: KindInvalidCertificate, Op: op, Message: "certificado inválido", Err: cause})
}

func Signing(op, msg string, cause error) error {
	return errors.WithStack(&Error{Kind: KindSigning, Op: op, Message: msg, Err: cause})
}

func TransportExhausted(op string, attempts int, cause error) error {
	return errors.WithStack(&Error{
		Kind:    KindTransportExhausted,
		Op:      op,
		Message: fmt.Sprintf("reintentos agotados tras %d intentos", attempts),
		Err:     cause,
	})
}

func Render(op, msg string, cause error) error {
	return errors.WithStack(&Error{Kind: KindRender, Op: op, Message: msg, Err: cause})
}

func StateTransition(from, to string) error {
	return errors.WithStack(&Error{
		Kind:    KindStateTransition,
		Op:      "state",
		Message: fmt.Sprintf("transición no permitida %s → %s", from, to),
	})
}

func Rejected(op string, messages []string) error {
	return errors.WithStack(&Error{
		Kind:    KindRejected,
		Op:      op,
		Message: "comprobante rechazado por el SRI",
		Details: messages,
	})
}
