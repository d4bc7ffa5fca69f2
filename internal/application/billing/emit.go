package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// Processor es el contrato del orquestador que usan los casos de uso y el re-drive.
type Processor interface {
	Process(ctx context.Context, documentID string) (*entity.Document, error)
}

// CreditNote son los datos de una nota de crédito sobre un comprobante autorizado.
type CreditNote struct {
	IssueDate      time.Time
	Reason         string
	Items          []entity.LineItem
	Totals         entity.Totals
	AdditionalInfo []entity.AdditionalField
}

// EmitUseCase crea comprobantes PENDING a partir de ventas finalizadas y los procesa.
type EmitUseCase struct {
	documents          repository.DocumentRepository
	companies          repository.CompanyRepository
	processor          Processor
	defaultEnvironment string
	now                func() time.Time
}

// NewEmitUseCase construye el caso de uso. defaultEnvironment es SRI_ENVIRONMENT; el
// ambiente del emisor, si está definido, tiene prioridad.
func NewEmitUseCase(
	documents repository.DocumentRepository,
	companies repository.CompanyRepository,
	processor Processor,
	defaultEnvironment string,
) *EmitUseCase {
	return &EmitUseCase{
		documents:          documents,
		companies:          companies,
		processor:          processor,
		defaultEnvironment: defaultEnvironment,
		now:                time.Now,
	}
}

// Emit registra la factura de la venta y recorre el pipeline. El documento se devuelve
// aunque Process falle, para que el llamador conozca su ID y último estado.
func (uc *EmitUseCase) Emit(ctx context.Context, companyID string, sale *entity.Sale) (*entity.Document, error) {
	const op = "billing.Emit"

	if sale == nil {
		return nil, domain.InvalidInput(op, "venta requerida")
	}
	if len(sale.Items) == 0 {
		return nil, domain.DataIncomplete(op, "detalles")
	}
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	doc := uc.newDocument(company, pkgsri.DocFactura, sale.IssueDate)
	doc.SaleID = sale.ID
	doc.Payload = entity.DocumentPayload{
		Buyer:          sale.Buyer,
		Items:          sale.Items,
		Payments:       sale.Payments,
		Totals:         sale.Totals,
		Tip:            sale.Tip,
		AdditionalInfo: sale.AdditionalInfo,
	}
	return uc.createAndProcess(ctx, doc)
}

// EmitCreditNote registra una nota de crédito (04) que modifica un comprobante
// AUTHORIZED del mismo emisor y la procesa.
func (uc *EmitUseCase) EmitCreditNote(ctx context.Context, originalID string, note *CreditNote) (*entity.Document, error) {
	const op = "billing.EmitCreditNote"

	if note == nil {
		return nil, domain.InvalidInput(op, "nota de crédito requerida")
	}
	if strings.TrimSpace(note.Reason) == "" {
		return nil, domain.DataIncomplete(op, "motivo")
	}
	if len(note.Items) == 0 {
		return nil, domain.DataIncomplete(op, "detalles")
	}
	original, err := uc.documents.GetByID(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original.Status != entity.StatusAuthorized {
		return nil, domain.InvalidInput(op, "el comprobante %s no está autorizado (%s)", original.ID, original.Status)
	}
	if original.DocType != pkgsri.DocFactura {
		return nil, domain.InvalidInput(op, "solo se admiten notas de crédito sobre facturas")
	}
	if note.Totals.GrandTotal.GreaterThan(original.Payload.Totals.GrandTotal) {
		return nil, domain.InvalidInput(op, "el valor de la modificación %s excede el total del comprobante %s",
			note.Totals.GrandTotal.StringFixed(2), original.Payload.Totals.GrandTotal.StringFixed(2))
	}
	company, err := uc.companies.GetByID(ctx, original.CompanyID)
	if err != nil {
		return nil, err
	}

	doc := uc.newDocument(company, pkgsri.DocNotaCredito, note.IssueDate)
	if doc.IssueDate.Before(original.IssueDate) {
		return nil, domain.InvalidInput(op, "la nota de crédito no puede ser anterior al comprobante modificado")
	}
	doc.SaleID = original.SaleID
	doc.Payload = entity.DocumentPayload{
		Buyer:          original.Payload.Buyer,
		Items:          note.Items,
		Totals:         note.Totals,
		Tip:            decimal.Zero,
		AdditionalInfo: note.AdditionalInfo,
		Reason:         note.Reason,
		Modified: &entity.ModifiedDocument{
			DocumentID: original.ID,
			DocType:    original.DocType,
			Number:     original.Number(),
			IssueDate:  original.IssueDate,
			AccessKey:  original.AccessKey,
		},
	}
	return uc.createAndProcess(ctx, doc)
}

func (uc *EmitUseCase) newDocument(company *entity.Company, docType string, issueDate time.Time) *entity.Document {
	now := uc.now()
	if issueDate.IsZero() {
		issueDate = now
	}
	env := company.Environment
	if env == "" {
		env = uc.defaultEnvironment
	}
	emission := company.EmissionType
	if emission == "" {
		emission = pkgsri.EmissionNormal
	}
	return &entity.Document{
		ID:            uuid.NewString(),
		CompanyID:     company.ID,
		DocType:       docType,
		Environment:   env,
		EmissionType:  emission,
		Establishment: company.Establishment,
		EmissionPoint: company.EmissionPoint,
		IssueDate:     issueDate.In(pkgsri.Location),
		Status:        entity.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (uc *EmitUseCase) createAndProcess(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	if err := uc.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	processed, err := uc.processor.Process(ctx, doc.ID)
	if processed == nil {
		processed = doc
	}
	return processed, err
}
