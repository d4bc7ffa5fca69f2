package entity

import "github.com/jhoicas/facturacion-sri/internal/domain"

// Status es el estado del comprobante dentro del pipeline SRI.
type Status string

const (
	StatusPending    Status = "PENDING"    // Venta finalizada, comprobante aún no generado
	StatusGenerated  Status = "GENERATED"  // XML construido con clave de acceso
	StatusValidated  Status = "VALIDATED"  // XML conforme al esquema
	StatusSigned     Status = "SIGNED"     // Firma XAdES-BES aplicada
	StatusSubmitted  Status = "SUBMITTED"  // RECIBIDA por RecepcionComprobantes
	StatusAuthorized Status = "AUTHORIZED" // AUTORIZADO por el SRI (terminal)
	StatusRejected   Status = "REJECTED"   // DEVUELTA / NO AUTORIZADO (terminal)
	StatusError      Status = "ERROR"      // Defecto local no reintentable (terminal)
)

// transitions enumera las únicas transiciones válidas; nunca retroceden.
var transitions = map[Status][]Status{
	StatusPending:   {StatusGenerated, StatusError},
	StatusGenerated: {StatusValidated, StatusError},
	StatusValidated: {StatusSigned, StatusError},
	StatusSigned:    {StatusSubmitted},
	StatusSubmitted: {StatusAuthorized, StatusRejected},
}

// CanTransition indica si from → to es una transición permitida.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal indica si el estado ya no admite transiciones.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid indica si s es uno de los estados conocidos.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusGenerated, StatusValidated, StatusSigned,
		StatusSubmitted, StatusAuthorized, StatusRejected, StatusError:
		return true
	}
	return false
}

// Reached indica si s es igual o posterior a other en el camino feliz.
func (s Status) Reached(other Status) bool {
	return happyPathIndex(s) >= happyPathIndex(other)
}

func happyPathIndex(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusGenerated:
		return 1
	case StatusValidated:
		return 2
	case StatusSigned:
		return 3
	case StatusSubmitted:
		return 4
	case StatusAuthorized:
		return 5
	}
	return -1
}

// checkTransition devuelve un error de máquina de estados si from → to no está permitido.
func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return domain.StateTransition(string(from), string(to))
	}
	return nil
}
