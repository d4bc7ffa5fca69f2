package entity

import "time"

// SequenceKey identifica un contador de secuenciales.
type SequenceKey struct {
	CompanyID     string
	Establishment string
	EmissionPoint string
	DocType       string
}

// AuthorityMessage es un mensaje devuelto por los servicios web del SRI.
type AuthorityMessage struct {
	Identifier     string `json:"identifier"`
	Message        string `json:"message"`
	AdditionalInfo string `json:"additional_info,omitempty"`
	Type           string `json:"type"` // ERROR, ADVERTENCIA, INFORMATIVO
}

func (m AuthorityMessage) String() string {
	s := m.Identifier + " " + m.Message
	if m.AdditionalInfo != "" {
		s += " (" + m.AdditionalInfo + ")"
	}
	return s
}

// Estados de RecepcionComprobantes.
const (
	ReceptionReceived = "RECIBIDA"
	ReceptionReturned = "DEVUELTA"
)

// SubmissionResult es la respuesta de validarComprobante.
type SubmissionResult struct {
	Status   string
	Messages []AuthorityMessage
}

// Received indica si el SRI aceptó el comprobante para autorización.
func (r *SubmissionResult) Received() bool { return r.Status == ReceptionReceived }

// Estados de AutorizacionComprobantes.
const (
	AuthorizationAuthorized    = "AUTORIZADO"
	AuthorizationNotAuthorized = "NO AUTORIZADO"
	AuthorizationInProcess     = "EN PROCESO"
)

// AuthorizationResult es la respuesta de autorizacionComprobante.
type AuthorizationResult struct {
	Status       string
	Number       string
	AuthorizedAt time.Time
	Environment  string
	Voucher      []byte // XML autorizado
	Messages     []AuthorityMessage
}

// Pending indica que el SRI aún no tiene una disposición final.
func (r *AuthorizationResult) Pending() bool {
	return r.Status != AuthorizationAuthorized && r.Status != AuthorizationNotAuthorized
}

// MessageStrings aplana mensajes para adjuntarlos como detalle de error.
func MessageStrings(msgs []AuthorityMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.String())
	}
	return out
}
