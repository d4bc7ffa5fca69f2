// Package sri implementa la integración con el SRI (Ecuador): construcción del XML
// de comprobantes (esquema offline v1.1.0), validación estructural y cliente SOAP.
package sri

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// Atributos del elemento raíz; el firmador referencia el comprobante por su id.
const (
	RootID         = "comprobante"
	SchemaVersion  = "1.1.0"
	dateLayoutSRI  = "02/01/2006"
	opBuildXML     = "sri.Build"
	fieldEmail     = "Email"
	fieldTelephone = "Teléfono"
)

// BuildContext contiene todo lo necesario para construir el XML del comprobante.
type BuildContext struct {
	Document *entity.Document // con AccessKey, Sequence y Payload ya asignados
	Company  *entity.Company  // emisor (infoTributaria)
}

// XMLBuilderService construye el XML del comprobante (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el XML de factura (01) o nota de crédito (04) en el orden del esquema.
// Verifica campos obligatorios, identificación del comprador y concilia totales con
// tolerancia cero antes de escribir un solo elemento.
func (s *XMLBuilderService) Build(ctx *BuildContext) ([]byte, error) {
	if ctx == nil || ctx.Document == nil || ctx.Company == nil {
		return nil, domain.DataIncomplete(opBuildXML, "documento", "empresa")
	}
	doc, company := ctx.Document, ctx.Company

	if missing := missingFields(doc, company); len(missing) > 0 {
		return nil, domain.DataIncomplete(opBuildXML, missing...)
	}
	totals, err := domainsri.ComputeTotals(doc.Payload.Items, doc.Payload.Tip)
	if err != nil {
		return nil, err
	}
	payments := doc.Payload.Payments
	if doc.DocType == pkgsri.DocNotaCredito {
		payments = nil // la nota de crédito no declara pagos
	}
	if err := domainsri.Reconcile(totals, doc.Payload.Totals, payments); err != nil {
		return nil, err
	}
	buyer := doc.Payload.Buyer
	if err := pkgsri.ValidateBuyerID(buyer.IDType, buyer.ID, totals.GrandTotal); err != nil {
		return nil, domain.InvalidInput(opBuildXML, "comprador: %v", err)
	}

	var root string
	switch doc.DocType {
	case pkgsri.DocFactura:
		root = "factura"
	case pkgsri.DocNotaCredito:
		root = "notaCredito"
	default:
		return nil, domain.InvalidInput(opBuildXML, "tipo de comprobante %q no soportado", doc.DocType)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &xmlWriter{enc: xml.NewEncoder(&buf)}
	w.enc.Indent("", "  ")

	w.start(root, attr("id", RootID), attr("version", SchemaVersion))
	writeInfoTributaria(w, doc, company)
	if doc.DocType == pkgsri.DocFactura {
		writeInfoFactura(w, doc, company, totals)
	} else {
		writeInfoNotaCredito(w, doc, company, totals)
	}
	writeDetalles(w, doc.DocType, totals)
	writeInfoAdicional(w, doc.Payload)
	w.end(root)

	if err := w.flush(); err != nil {
		return nil, domain.InvalidInput(opBuildXML, "no se pudo codificar el XML: %v", err)
	}
	return buf.Bytes(), nil
}

// BuildDocument es el atajo que usa el orquestador.
func (s *XMLBuilderService) BuildDocument(doc *entity.Document, company *entity.Company) ([]byte, error) {
	return s.Build(&BuildContext{Document: doc, Company: company})
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func writeInfoTributaria(w *xmlWriter, doc *entity.Document, c *entity.Company) {
	w.start("infoTributaria")
	w.leaf("ambiente", doc.Environment)
	w.leaf("tipoEmision", lo.Ternary(doc.EmissionType != "", doc.EmissionType, pkgsri.EmissionNormal))
	w.leaf("razonSocial", cleanText(c.LegalName))
	w.optional("nombreComercial", cleanText(c.TradeName))
	w.leaf("ruc", c.RUC)
	w.leaf("claveAcceso", doc.AccessKey)
	w.leaf("codDoc", doc.DocType)
	w.leaf("estab", doc.Establishment)
	w.leaf("ptoEmi", doc.EmissionPoint)
	w.leaf("secuencial", fmt.Sprintf("%09d", doc.Sequence))
	w.leaf("dirMatriz", cleanText(c.HeadOfficeAddress))
	w.end("infoTributaria")
}

func writeInfoFactura(w *xmlWriter, doc *entity.Document, c *entity.Company, t *domainsri.ComputedTotals) {
	b := doc.Payload.Buyer
	w.start("infoFactura")
	w.leaf("fechaEmision", doc.IssueDate.Format(dateLayoutSRI))
	w.optional("dirEstablecimiento", cleanText(c.EstablishmentAddress))
	w.optional("contribuyenteEspecial", c.SpecialTaxpayer)
	w.leaf("obligadoContabilidad", yesNo(c.AccountingRequired))
	w.leaf("tipoIdentificacionComprador", b.IDType)
	w.leaf("razonSocialComprador", cleanText(b.Name))
	w.leaf("identificacionComprador", b.ID)
	w.optional("direccionComprador", cleanText(b.Address))
	w.leaf("totalSinImpuestos", formatMoney(t.SubtotalNoTax))
	w.leaf("totalDescuento", formatMoney(t.TotalDiscount))
	writeTotalConImpuestos(w, t)
	w.leaf("propina", formatMoney(t.Tip))
	w.leaf("importeTotal", formatMoney(t.GrandTotal))
	w.leaf("moneda", pkgsri.Currency)
	w.start("pagos")
	for _, p := range doc.Payload.Payments {
		w.start("pago")
		w.leaf("formaPago", p.Method)
		w.leaf("total", formatMoney(p.Total))
		if p.Term > 0 {
			w.leaf("plazo", strconv.Itoa(p.Term))
			w.leaf("unidadTiempo", lo.Ternary(p.TimeUnit != "", p.TimeUnit, "dias"))
		}
		w.end("pago")
	}
	w.end("pagos")
	w.end("infoFactura")
}

func writeInfoNotaCredito(w *xmlWriter, doc *entity.Document, c *entity.Company, t *domainsri.ComputedTotals) {
	b := doc.Payload.Buyer
	m := doc.Payload.Modified
	w.start("infoNotaCredito")
	w.leaf("fechaEmision", doc.IssueDate.Format(dateLayoutSRI))
	w.optional("dirEstablecimiento", cleanText(c.EstablishmentAddress))
	w.leaf("tipoIdentificacionComprador", b.IDType)
	w.leaf("razonSocialComprador", cleanText(b.Name))
	w.leaf("identificacionComprador", b.ID)
	w.optional("contribuyenteEspecial", c.SpecialTaxpayer)
	w.leaf("obligadoContabilidad", yesNo(c.AccountingRequired))
	w.leaf("codDocModificado", m.DocType)
	w.leaf("numDocModificado", m.Number)
	w.leaf("fechaEmisionDocSustento", m.IssueDate.Format(dateLayoutSRI))
	w.leaf("totalSinImpuestos", formatMoney(t.SubtotalNoTax))
	w.leaf("valorModificacion", formatMoney(t.GrandTotal))
	w.leaf("moneda", pkgsri.Currency)
	writeTotalConImpuestos(w, t)
	w.leaf("motivo", cleanText(doc.Payload.Reason))
	w.end("infoNotaCredito")
}

func writeTotalConImpuestos(w *xmlWriter, t *domainsri.ComputedTotals) {
	w.start("totalConImpuestos")
	for _, g := range t.Subtotals {
		w.start("totalImpuesto")
		w.leaf("codigo", g.Code)
		w.leaf("codigoPorcentaje", g.RateCode)
		w.leaf("baseImponible", formatMoney(g.Base))
		w.leaf("valor", formatMoney(g.Value))
		w.end("totalImpuesto")
	}
	w.end("totalConImpuestos")
}

func writeDetalles(w *xmlWriter, docType string, t *domainsri.ComputedTotals) {
	// La nota de crédito usa codigoInterno/codigoAdicional en lugar de codigoPrincipal/codigoAuxiliar.
	codeTag, auxTag := "codigoPrincipal", "codigoAuxiliar"
	if docType == pkgsri.DocNotaCredito {
		codeTag, auxTag = "codigoInterno", "codigoAdicional"
	}
	w.start("detalles")
	for _, l := range t.Lines {
		w.start("detalle")
		w.leaf(codeTag, cleanText(l.Item.Code))
		w.optional(auxTag, cleanText(l.Item.AuxCode))
		w.leaf("descripcion", cleanText(l.Item.Description))
		w.leaf("cantidad", formatQuantity(l.Item.Quantity))
		w.leaf("precioUnitario", formatQuantity(l.Item.UnitPrice))
		w.leaf("descuento", formatMoney(l.Item.Discount))
		w.leaf("precioTotalSinImpuesto", formatMoney(l.Net))
		w.start("impuestos")
		w.start("impuesto")
		w.leaf("codigo", pkgsri.TaxIVA)
		w.leaf("codigoPorcentaje", l.RateCode)
		w.leaf("tarifa", formatRate(l.Rate))
		w.leaf("baseImponible", formatMoney(l.Net))
		w.leaf("valor", formatMoney(l.Tax))
		w.end("impuesto")
		w.end("impuestos")
		w.end("detalle")
	}
	w.end("detalles")
}

func writeInfoAdicional(w *xmlWriter, p entity.DocumentPayload) {
	fields := make([]entity.AdditionalField, 0, len(p.AdditionalInfo)+2)
	if p.Buyer.Email != "" {
		fields = append(fields, entity.AdditionalField{Name: fieldEmail, Value: p.Buyer.Email})
	}
	if p.Buyer.Phone != "" {
		fields = append(fields, entity.AdditionalField{Name: fieldTelephone, Value: p.Buyer.Phone})
	}
	fields = append(fields, p.AdditionalInfo...)
	fields = lo.Filter(fields, func(f entity.AdditionalField, _ int) bool {
		return cleanText(f.Name) != "" && cleanText(f.Value) != ""
	})
	if len(fields) == 0 {
		return
	}
	w.start("infoAdicional")
	for _, f := range fields {
		w.start("campoAdicional", attr("nombre", cleanText(f.Name)))
		w.text(cleanText(f.Value))
		w.end("campoAdicional")
	}
	w.end("infoAdicional")
}

// missingFields lista los campos obligatorios ausentes con su ruta legible.
func missingFields(doc *entity.Document, c *entity.Company) []string {
	var missing []string
	need := func(value, path string) {
		if cleanText(value) == "" {
			missing = append(missing, path)
		}
	}
	need(c.RUC, "emisor.ruc")
	need(c.LegalName, "emisor.razonSocial")
	need(c.HeadOfficeAddress, "emisor.dirMatriz")
	need(doc.AccessKey, "claveAcceso")
	need(doc.Environment, "ambiente")
	need(doc.Establishment, "estab")
	need(doc.EmissionPoint, "ptoEmi")
	if doc.Sequence <= 0 {
		missing = append(missing, "secuencial")
	}
	if doc.IssueDate.IsZero() {
		missing = append(missing, "fechaEmision")
	}

	b := doc.Payload.Buyer
	need(b.IDType, "comprador.tipoIdentificacion")
	need(b.ID, "comprador.identificacion")
	need(b.Name, "comprador.razonSocial")

	if len(doc.Payload.Items) == 0 {
		missing = append(missing, "detalles")
	}
	for i, it := range doc.Payload.Items {
		prefix := fmt.Sprintf("detalles[%d].", i+1)
		need(it.Code, prefix+"codigo")
		need(it.Description, prefix+"descripcion")
		need(it.TaxRateCode, prefix+"codigoPorcentaje")
	}

	switch doc.DocType {
	case pkgsri.DocFactura:
		if len(doc.Payload.Payments) == 0 {
			missing = append(missing, "pagos")
		}
		for i, p := range doc.Payload.Payments {
			need(p.Method, fmt.Sprintf("pagos[%d].formaPago", i+1))
		}
	case pkgsri.DocNotaCredito:
		need(doc.Payload.Reason, "motivo")
		if m := doc.Payload.Modified; m == nil {
			missing = append(missing, "docModificado")
		} else {
			need(m.DocType, "docModificado.codDoc")
			need(m.Number, "docModificado.numero")
			if m.IssueDate.IsZero() {
				missing = append(missing, "docModificado.fechaEmision")
			}
		}
	}
	return missing
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

// ── Escritura de tokens ───────────────────────────────────────────────────────

// xmlWriter encadena tokens y conserva el primer error del encoder.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *xmlWriter) start(local string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: local}, Attr: attrs})
}

func (w *xmlWriter) end(local string) {
	w.token(xml.EndElement{Name: xml.Name{Local: local}})
}

func (w *xmlWriter) text(value string) {
	w.token(xml.CharData(value))
}

func (w *xmlWriter) leaf(local, value string) {
	w.start(local)
	w.text(value)
	w.end(local)
}

// optional omite el elemento cuando el valor está vacío (minOccurs=0).
func (w *xmlWriter) optional(local, value string) {
	if value != "" {
		w.leaf(local, value)
	}
}

func (w *xmlWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.enc.Flush()
}
