package entity

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

const renderKind = string(domain.KindRender)

// Document es el comprobante electrónico que recorre el pipeline SRI.
// Solo el orquestador lo muta; en AUTHORIZED/REJECTED/ERROR es inmutable, salvo el
// RIDE y su diagnóstico de render, que se adjuntan con AttachReceipt y RecordRenderFailure.
type Document struct {
	ID            string
	CompanyID     string
	SaleID        string
	DocType       string // 01 factura, 04 nota de crédito
	Environment   string // 1 pruebas, 2 producción
	EmissionType  string // 1 emisión normal
	Establishment string // estab (3 dígitos)
	EmissionPoint string // ptoEmi (3 dígitos)
	Sequence      int64  // secuencial; 0 = aún no reservado
	IssueDate     time.Time
	AccessKey     string // clave de acceso de 49 dígitos
	NumericCode   string // código numérico de 8 dígitos usado en la clave

	Payload DocumentPayload

	Status              Status
	GeneratedXML        []byte
	SignedXML           []byte
	AuthorizedXML       []byte // comprobante devuelto por AutorizacionComprobantes
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	AuthorityMessages   []AuthorityMessage
	LastError           *StageError
	Attempts            int        // intentos de transporte acumulados
	NextRetryAt         *time.Time // próximo re-drive programado
	ReceiptPDF          []byte     // RIDE

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentPayload agrupa los datos de negocio congelados al crear el comprobante.
type DocumentPayload struct {
	Buyer          Buyer             `json:"buyer"`
	Items          []LineItem        `json:"items"`
	Payments       []Payment         `json:"payments"`
	Totals         Totals            `json:"totals"`
	Tip            decimal.Decimal   `json:"tip"`
	AdditionalInfo []AdditionalField `json:"additional_info,omitempty"`
	Modified       *ModifiedDocument `json:"modified,omitempty"` // solo nota de crédito
	Reason         string            `json:"reason,omitempty"`   // motivo de la nota de crédito
}

// ModifiedDocument referencia el comprobante que corrige una nota de crédito.
type ModifiedDocument struct {
	DocumentID string    `json:"document_id"`
	DocType    string    `json:"doc_type"`
	Number     string    `json:"number"` // 001-001-000000001
	IssueDate  time.Time `json:"issue_date"`
	AccessKey  string    `json:"access_key"`
}

// StageError conserva el diagnóstico de la etapa que falló.
type StageError struct {
	Stage   Status    `json:"stage"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Details []string  `json:"details,omitempty"`
	At      time.Time `json:"at"`
}

// Number devuelve el número de comprobante estab-ptoEmi-secuencial.
func (d *Document) Number() string {
	return FormatNumber(d.Establishment, d.EmissionPoint, d.Sequence)
}

// FormatNumber formatea estab-ptoEmi-secuencial con el secuencial a 9 dígitos.
func FormatNumber(establishment, emissionPoint string, sequence int64) string {
	return fmt.Sprintf("%s-%s-%09d", establishment, emissionPoint, sequence)
}

// SequenceKey devuelve la tupla que identifica el contador del comprobante.
func (d *Document) SequenceKey() SequenceKey {
	return SequenceKey{
		CompanyID:     d.CompanyID,
		Establishment: d.Establishment,
		EmissionPoint: d.EmissionPoint,
		DocType:       d.DocType,
	}
}

// Transition avanza el estado; falla si la transición no está permitida.
func (d *Document) Transition(to Status, now time.Time) error {
	if err := checkTransition(d.Status, to); err != nil {
		return err
	}
	d.Status = to
	d.UpdatedAt = now
	if to != StatusError {
		d.LastError = nil
	}
	d.NextRetryAt = nil
	return nil
}

// AttachReceipt adjunta el RIDE a un comprobante autorizado y limpia un fallo de
// render previo. Es la única escritura permitida tras AUTHORIZED junto con
// RecordRenderFailure.
func (d *Document) AttachReceipt(pdf []byte, now time.Time) error {
	if d.Status != StatusAuthorized {
		return domain.StateTransition(string(d.Status), "RIDE")
	}
	if len(pdf) == 0 {
		return errors.Newf("entity: RIDE vacío para comprobante %s", d.ID)
	}
	d.ReceiptPDF = pdf
	if d.LastError != nil && d.LastError.Kind == renderKind {
		d.LastError = nil
	}
	d.UpdatedAt = now
	return nil
}

// RecordRenderFailure deja el diagnóstico de un RIDE fallido en un comprobante
// autorizado sin tocar estado ni artefactos XML.
func (d *Document) RecordRenderFailure(stageErr StageError) error {
	if d.Status != StatusAuthorized {
		return domain.StateTransition(string(d.Status), "RIDE")
	}
	if stageErr.Kind != renderKind {
		return errors.Newf("entity: diagnóstico %s no admitido tras AUTHORIZED", stageErr.Kind)
	}
	d.LastError = &stageErr
	d.UpdatedAt = stageErr.At
	return nil
}

// RecordFailure adjunta el diagnóstico de un fallo reintentable sin cambiar el estado.
func (d *Document) RecordFailure(stageErr StageError, nextRetry *time.Time) {
	d.LastError = &stageErr
	d.NextRetryAt = nextRetry
	d.UpdatedAt = stageErr.At
}
