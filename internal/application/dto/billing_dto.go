package dto

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// EmitDocumentRequest body para POST /api/documents: la venta finalizada a facturar.
type EmitDocumentRequest struct {
	SaleID         string                  `json:"sale_id" validate:"required,max=64"`
	IssueDate      *time.Time              `json:"issue_date,omitempty"`
	Buyer          BuyerRequest            `json:"buyer"`
	Items          []LineItemRequest       `json:"items" validate:"required,min=1,dive"`
	Payments       []PaymentRequest        `json:"payments" validate:"required,min=1,dive"`
	Totals         TotalsRequest           `json:"totals"`
	Tip            decimal.Decimal         `json:"tip"`
	AdditionalInfo []AdditionalFieldRequest `json:"additional_info,omitempty" validate:"max=15,dive"`
}

// CreditNoteRequest body para POST /api/documents/:id/credit-notes.
type CreditNoteRequest struct {
	IssueDate      *time.Time              `json:"issue_date,omitempty"`
	Reason         string                  `json:"reason" validate:"required,max=300"`
	Items          []LineItemRequest       `json:"items" validate:"required,min=1,dive"`
	Totals         TotalsRequest           `json:"totals"`
	AdditionalInfo []AdditionalFieldRequest `json:"additional_info,omitempty" validate:"max=15,dive"`
}

// BuyerRequest comprador (Tabla 6: 04 RUC, 05 cédula, 06 pasaporte, 07 consumidor final, 08 exterior).
type BuyerRequest struct {
	IDType  string `json:"id_type" validate:"required,oneof=04 05 06 07 08"`
	ID      string `json:"id" validate:"required,max=20"`
	Name    string `json:"name" validate:"required,max=300"`
	Address string `json:"address,omitempty" validate:"max=300"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"max=20"`
}

// LineItemRequest línea de detalle.
type LineItemRequest struct {
	Code        string          `json:"code" validate:"required,max=25"`
	AuxCode     string          `json:"aux_code,omitempty" validate:"max=25"`
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRateCode string          `json:"tax_rate_code" validate:"required,max=4"`
}

// PaymentRequest forma de pago (formaPago SRI).
type PaymentRequest struct {
	Method   string          `json:"method" validate:"required,len=2,numeric"`
	Total    decimal.Decimal `json:"total"`
	Term     int             `json:"term,omitempty" validate:"min=0"`
	TimeUnit string          `json:"time_unit,omitempty" validate:"omitempty,oneof=dias meses"`
}

// TotalsRequest totales declarados; se concilian contra las líneas sin tolerancia.
type TotalsRequest struct {
	SubtotalNoTax decimal.Decimal `json:"subtotal_no_tax"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// AdditionalFieldRequest campoAdicional.
type AdditionalFieldRequest struct {
	Name  string `json:"name" validate:"required,max=300"`
	Value string `json:"value" validate:"required,max=300"`
}

// ToSale convierte la petición en la venta de entrada del pipeline.
func (r *EmitDocumentRequest) ToSale() *entity.Sale {
	sale := &entity.Sale{
		ID: r.SaleID,
		Buyer: entity.Buyer{
			IDType:  r.Buyer.IDType,
			ID:      r.Buyer.ID,
			Name:    r.Buyer.Name,
			Address: r.Buyer.Address,
			Email:   r.Buyer.Email,
			Phone:   r.Buyer.Phone,
		},
		Items: toLineItems(r.Items),
		Payments: lo.Map(r.Payments, func(p PaymentRequest, _ int) entity.Payment {
			return entity.Payment{Method: p.Method, Total: p.Total, Term: p.Term, TimeUnit: p.TimeUnit}
		}),
		Totals:         r.Totals.toEntity(),
		Tip:            r.Tip,
		AdditionalInfo: toAdditionalFields(r.AdditionalInfo),
	}
	if r.IssueDate != nil {
		sale.IssueDate = *r.IssueDate
	}
	return sale
}

// ToCreditNote convierte la petición en los datos de la nota de crédito.
func (r *CreditNoteRequest) ToCreditNote() *billing.CreditNote {
	note := &billing.CreditNote{
		Reason:         r.Reason,
		Items:          toLineItems(r.Items),
		Totals:         r.Totals.toEntity(),
		AdditionalInfo: toAdditionalFields(r.AdditionalInfo),
	}
	if r.IssueDate != nil {
		note.IssueDate = *r.IssueDate
	}
	return note
}

func (t TotalsRequest) toEntity() entity.Totals {
	return entity.Totals{
		SubtotalNoTax: t.SubtotalNoTax,
		TotalDiscount: t.TotalDiscount,
		TotalTax:      t.TotalTax,
		GrandTotal:    t.GrandTotal,
	}
}

func toLineItems(in []LineItemRequest) []entity.LineItem {
	return lo.Map(in, func(it LineItemRequest, _ int) entity.LineItem {
		return entity.LineItem{
			Code:        it.Code,
			AuxCode:     it.AuxCode,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			TaxRateCode: it.TaxRateCode,
		}
	})
}

func toAdditionalFields(in []AdditionalFieldRequest) []entity.AdditionalField {
	return lo.Map(in, func(f AdditionalFieldRequest, _ int) entity.AdditionalField {
		return entity.AdditionalField{Name: f.Name, Value: f.Value}
	})
}

// ── Respuestas ────────────────────────────────────────────────────────────────

// DocumentResponse estado del comprobante para GET /api/documents/:id.
// LastError conserva el diagnóstico de la etapa que falló (violaciones de esquema,
// mensajes del SRI, campos faltantes).
type DocumentResponse struct {
	ID                  string                    `json:"id"`
	CompanyID           string                    `json:"company_id"`
	SaleID              string                    `json:"sale_id,omitempty"`
	DocType             string                    `json:"doc_type"`
	Number              string                    `json:"number,omitempty"`
	Environment         string                    `json:"environment"`
	IssueDate           string                    `json:"issue_date"`
	AccessKey           string                    `json:"access_key,omitempty"`
	Status              string                    `json:"status"`
	AuthorizationNumber string                    `json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time                `json:"authorized_at,omitempty"`
	GrandTotal          decimal.Decimal           `json:"grand_total"`
	Attempts            int                       `json:"attempts"`
	NextRetryAt         *time.Time                `json:"next_retry_at,omitempty"`
	AuthorityMessages   []entity.AuthorityMessage `json:"authority_messages,omitempty"`
	LastError           *entity.StageError        `json:"last_error,omitempty"`
	Modified            *entity.ModifiedDocument  `json:"modified,omitempty"`
	HasRIDE             bool                      `json:"has_ride"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

// DocumentListResponse lista paginada de comprobantes.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ListDocumentsRequest filtros de GET /api/documents.
type ListDocumentsRequest struct {
	PageRequest
	Status string `query:"status" validate:"omitempty,oneof=PENDING GENERATED VALIDATED SIGNED SUBMITTED AUTHORIZED REJECTED ERROR"`
}

// ToDocumentResponse mapea el comprobante sin exponer los artefactos binarios.
func ToDocumentResponse(d *entity.Document) *DocumentResponse {
	if d == nil {
		return nil
	}
	resp := &DocumentResponse{
		ID:                  d.ID,
		CompanyID:           d.CompanyID,
		SaleID:              d.SaleID,
		DocType:             d.DocType,
		Environment:         d.Environment,
		IssueDate:           d.IssueDate.Format("2006-01-02"),
		AccessKey:           d.AccessKey,
		Status:              string(d.Status),
		AuthorizationNumber: d.AuthorizationNumber,
		AuthorizedAt:        d.AuthorizedAt,
		GrandTotal:          d.Payload.Totals.GrandTotal,
		Attempts:            d.Attempts,
		NextRetryAt:         d.NextRetryAt,
		AuthorityMessages:   d.AuthorityMessages,
		LastError:           d.LastError,
		Modified:            d.Payload.Modified,
		HasRIDE:             len(d.ReceiptPDF) > 0,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	if d.Sequence > 0 {
		resp.Number = d.Number()
	}
	return resp
}
