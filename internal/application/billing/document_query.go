package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// DocumentQueryUseCase expone el estado y los artefactos de los comprobantes al
// colaborador que los emitió. AllCompanies ("") omite la verificación de pertenencia
// y queda reservado al rol administrador.
type DocumentQueryUseCase struct {
	documents repository.DocumentRepository
	companies repository.CompanyRepository
	renderer  Renderer
	processor Processor
	redriver  *Redriver
	now       func() time.Time
}

// AllCompanies desactiva el filtro por emisor.
const AllCompanies = ""

// NewDocumentQueryUseCase construye el caso de uso inyectando todas sus dependencias.
func NewDocumentQueryUseCase(
	documents repository.DocumentRepository,
	companies repository.CompanyRepository,
	renderer Renderer,
	processor Processor,
	redriver *Redriver,
) *DocumentQueryUseCase {
	return &DocumentQueryUseCase{
		documents: documents,
		companies: companies,
		renderer:  renderer,
		processor: processor,
		redriver:  redriver,
		now:       time.Now,
	}
}

// Get devuelve el comprobante si pertenece a companyID.
//
// Retorna:
//   - domain.ErrNotFound  si el comprobante no existe.
//   - domain.ErrForbidden si pertenece a otro emisor.
func (uc *DocumentQueryUseCase) Get(ctx context.Context, companyID, id string) (*entity.Document, error) {
	doc, err := uc.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if companyID != AllCompanies && doc.CompanyID != companyID {
		return nil, errors.Wrapf(domain.ErrForbidden, "comprobante %s", id)
	}
	return doc, nil
}

// List lista los comprobantes del emisor, opcionalmente filtrados por estado.
func (uc *DocumentQueryUseCase) List(ctx context.Context, companyID string, status entity.Status, limit, offset int) ([]*entity.Document, error) {
	if companyID == AllCompanies {
		return nil, domain.InvalidInput("billing.List", "se requiere el emisor")
	}
	if status != "" && !status.Valid() {
		return nil, domain.InvalidInput("billing.List", "estado desconocido %q", status)
	}
	return uc.documents.ListByCompany(ctx, companyID, status, limit, offset)
}

// XML devuelve el artefacto XML más avanzado disponible: autorizado, firmado o generado.
func (uc *DocumentQueryUseCase) XML(ctx context.Context, companyID, id string) (data []byte, filename string, err error) {
	doc, err := uc.Get(ctx, companyID, id)
	if err != nil {
		return nil, "", err
	}
	switch {
	case len(doc.AuthorizedXML) > 0:
		data = doc.AuthorizedXML
	case len(doc.SignedXML) > 0:
		data = doc.SignedXML
	case len(doc.GeneratedXML) > 0:
		data = doc.GeneratedXML
	default:
		return nil, "", domain.InvalidInput("billing.XML",
			"el comprobante está en estado %s, aún no tiene XML", doc.Status)
	}
	return data, artifactName(doc, "xml"), nil
}

// RIDE devuelve la representación impresa. Solo existe para comprobantes autorizados;
// si el render falló tras la autorización se regenera y se persiste aquí.
func (uc *DocumentQueryUseCase) RIDE(ctx context.Context, companyID, id string) (pdf []byte, filename string, err error) {
	doc, err := uc.Get(ctx, companyID, id)
	if err != nil {
		return nil, "", err
	}
	if doc.Status != entity.StatusAuthorized {
		return nil, "", domain.InvalidInput("billing.RIDE",
			"el comprobante está en estado %s, el RIDE requiere autorización", doc.Status)
	}
	if err := uc.ensureRIDE(ctx, doc); err != nil {
		return nil, "", err
	}
	return doc.ReceiptPDF, artifactName(doc, "pdf"), nil
}

// Notification arma el correo MIME para el comprador de un comprobante autorizado.
func (uc *DocumentQueryUseCase) Notification(ctx context.Context, companyID, id string) (*NotificationPayload, error) {
	doc, err := uc.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == entity.StatusAuthorized {
		if err := uc.ensureRIDE(ctx, doc); err != nil {
			return nil, err
		}
	}
	company, err := uc.companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, errors.Wrap(err, "billing: obtener emisor")
	}
	return BuildNotification(doc, company)
}

// Process re-dirige manualmente un comprobante desde su último estado persistido.
func (uc *DocumentQueryUseCase) Process(ctx context.Context, companyID, id string) (*entity.Document, error) {
	if _, err := uc.Get(ctx, companyID, id); err != nil {
		return nil, err
	}
	return uc.processor.Process(ctx, id)
}

// Redrive ejecuta una pasada del barrido de re-drive con la hora actual.
func (uc *DocumentQueryUseCase) Redrive(ctx context.Context) (*RedriveReport, error) {
	return uc.redriver.RunOnceAt(ctx, uc.now())
}

func (uc *DocumentQueryUseCase) ensureRIDE(ctx context.Context, doc *entity.Document) error {
	if len(doc.ReceiptPDF) > 0 {
		return nil
	}
	company, err := uc.companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return errors.Wrap(err, "billing: obtener emisor")
	}
	pdf, err := uc.renderer.Render(ctx, doc, company)
	if err != nil {
		return err
	}
	if err := doc.AttachReceipt(pdf, uc.now()); err != nil {
		return err
	}
	if err := uc.documents.Update(ctx, doc); err != nil {
		return errors.Wrap(err, "billing: guardar RIDE")
	}
	return nil
}

// artifactName produce factura_001-001-000000001.xml o notaCredito_....pdf.
func artifactName(doc *entity.Document, ext string) string {
	prefix := "comprobante"
	switch doc.DocType {
	case pkgsri.DocFactura:
		prefix = "factura"
	case pkgsri.DocNotaCredito:
		prefix = "notaCredito"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, doc.Number(), ext)
}
