// Package pdf implementa el RIDE (Representación Impresa del Documento
// Electrónico) de los comprobantes autorizados por el SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social, matriz,    │  RUC + tipo + número     │
//	│  establecimiento, contabilidad    │  Autorización + fecha    │
//	│                                   │  Ambiente / Emisión      │
//	│                                   │  Clave de acceso (barra) │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPRADOR: Razón social / Identificación / Fecha emisión    │
//	│  (NC) Comprobante modificado + motivo                        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cód | Cant | Descripción | P.Unit | Dscto | Total     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  INFO ADICIONAL / PAGOS       │  SUBTOTALES por tarifa + IVA │
//	└─────────────────────────────────────────────────────────────┘
//
// La salida es determinista: la fecha de creación del PDF es la de autorización.
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

const opRender = "pdf.Render"

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// RIDEGenerator implementa billing.Renderer usando Maroto v2.
type RIDEGenerator struct{}

// NewRIDEGenerator construye el generador.
func NewRIDEGenerator() *RIDEGenerator { return &RIDEGenerator{} }

// Render genera el RIDE de un comprobante AUTHORIZED y devuelve los bytes del PDF.
func (g *RIDEGenerator) Render(_ context.Context, doc *entity.Document, company *entity.Company) ([]byte, error) {
	if err := checkRenderable(doc, company); err != nil {
		return nil, err
	}
	totals, err := domainsri.ComputeTotals(doc.Payload.Items, doc.Payload.Tip)
	if err != nil {
		return nil, domain.Render(opRender, "no se pudieron calcular los totales", err)
	}

	title := pkgsri.DocTypeNames[doc.DocType] + " " + doc.Number()
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(title, true).
		WithAuthor(company.LegalName, true).
		WithSubject("RIDE "+doc.AccessKey, true).
		WithCreationDate(doc.AuthorizedAt.UTC()).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRows(doc, company)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(buyerRows(doc)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(doc.DocType, totals.Lines)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(summaryRow(doc, totals))

	out, err := m.Generate()
	if err != nil {
		return nil, domain.Render(opRender, "generar documento", err)
	}
	return out.GetBytes(), nil
}

func checkRenderable(doc *entity.Document, company *entity.Company) error {
	if doc == nil || company == nil {
		return domain.Render(opRender, "documento o emisor ausente", nil)
	}
	if doc.Status != entity.StatusAuthorized {
		return domain.Render(opRender, fmt.Sprintf("el comprobante está en %s, se requiere AUTHORIZED", doc.Status), nil)
	}
	if doc.AccessKey == "" || doc.AuthorizationNumber == "" || doc.AuthorizedAt == nil {
		return domain.Render(opRender, "faltan clave de acceso o datos de autorización", nil)
	}
	return nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRows: emisor (izq) y recuadro tributario con la clave de acceso (der).
func headerRows(doc *entity.Document, company *entity.Company) []core.Row {
	issuer := []core.Component{
		text.New(company.LegalName, props.Text{
			Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
		}),
	}
	top := 9.0
	add := func(label, value string) {
		if value == "" {
			return
		}
		issuer = append(issuer, text.New(label+value, props.Text{Size: 8, Top: top, Color: colorGray}))
		top += 5
	}
	add("", company.TradeName)
	add("Dir. Matriz: ", company.HeadOfficeAddress)
	add("Dir. Establecimiento: ", company.EstablishmentAddress)
	add("Contribuyente Especial Nro: ", company.SpecialTaxpayer)
	add("Obligado a llevar contabilidad: ", yesNo(company.AccountingRequired))

	authorizedAt := doc.AuthorizedAt.In(pkgsri.Location).Format("02/01/2006 15:04:05")
	right := func(s string, y float64, bold bool) core.Component {
		p := props.Text{Size: 8, Align: align.Right, Top: y}
		if bold {
			p.Style = fontstyle.Bold
		}
		return text.New(s, p)
	}

	return []core.Row{
		row.New(42).Add(
			col.New(6).Add(issuer...),
			col.New(6).Add(
				text.New("R.U.C.: "+company.RUC, props.Text{
					Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 1,
				}),
				text.New(pkgsri.DocTypeNames[doc.DocType], props.Text{
					Style: fontstyle.Bold, Size: 11, Align: align.Right, Color: colorPrimary, Top: 7,
				}),
				right("No. "+doc.Number(), 14, true),
				right("NÚMERO DE AUTORIZACIÓN", 20, true),
				right(doc.AuthorizationNumber, 25, false),
				right("FECHA Y HORA DE AUTORIZACIÓN: "+authorizedAt, 30, false),
				right("AMBIENTE: "+pkgsri.EnvironmentName(doc.Environment), 35, false),
				right("EMISIÓN: NORMAL", 39, false),
			),
		),
		row.New(6).Add(col.New(12).Add(
			text.New("CLAVE DE ACCESO", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 1}),
		)),
		row.New(14).Add(
			col.New(1),
			col.New(10).Add(code.NewBar(doc.AccessKey, props.Barcode{
				Percent: 100,
				Center:  true,
			})),
			col.New(1),
		),
		row.New(5).Add(col.New(12).Add(
			text.New(doc.AccessKey, props.Text{Size: 8, Align: align.Center, Top: 1}),
		)),
	}
}

// buyerRows: datos del comprador y, en nota de crédito, el comprobante modificado.
func buyerRows(doc *entity.Document) []core.Row {
	b := doc.Payload.Buyer
	rows := []core.Row{
		row.New(6).Add(
			col.New(8).Add(text.New("Razón Social / Nombres y Apellidos: "+b.Name, props.Text{Size: 8, Top: 1})),
			col.New(4).Add(text.New("Identificación: "+b.ID, props.Text{Size: 8, Top: 1, Align: align.Right})),
		),
		row.New(6).Add(
			col.New(8).Add(text.New("Dirección: "+nonEmpty(b.Address, "-"), props.Text{Size: 8, Top: 1})),
			col.New(4).Add(text.New("Fecha Emisión: "+doc.IssueDate.In(pkgsri.Location).Format("02/01/2006"), props.Text{
				Size: 8, Top: 1, Align: align.Right,
			})),
		),
	}

	if mod := doc.Payload.Modified; mod != nil {
		rows = append(rows,
			row.New(6).Add(
				col.New(8).Add(text.New(fmt.Sprintf("Comprobante que se modifica: %s %s",
					pkgsri.DocTypeNames[mod.DocType], mod.Number), props.Text{Size: 8, Top: 1})),
				col.New(4).Add(text.New("Fecha Emisión (Comprobante a modificar): "+
					mod.IssueDate.In(pkgsri.Location).Format("02/01/2006"), props.Text{Size: 8, Top: 1, Align: align.Right})),
			),
			row.New(6).Add(col.New(12).Add(
				text.New("Razón de Modificación: "+doc.Payload.Reason, props.Text{Size: 8, Top: 1}),
			)),
		)
	}
	return rows
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("Cód.", 2, align.Left),
		h("Cant.", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Descuento", 1, align.Right),
		h("P. Total", 2, align.Right),
	)
}

// tableDetailRows: una fila por línea de detalle con su base calculada.
func tableDetailRows(docType string, lines []domainsri.LineTotal) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		codeValue := l.Item.Code
		if docType == pkgsri.DocNotaCredito && codeValue == "" {
			codeValue = l.Item.AuxCode
		}
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(codeValue, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(formatQuantity(l.Item.Quantity), props.Text{
				Size: 8, Align: align.Center, Top: 1,
			})),
			col.New(4).Add(text.New(l.Item.Description, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatQuantity(l.Item.UnitPrice), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
			col.New(1).Add(text.New(formatMoney(l.Item.Discount), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
			col.New(2).Add(text.New(formatMoney(l.Net), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
		))
	}
	return result
}

// summaryRow: info adicional y pagos (izq), subtotales por tarifa y total (der).
func summaryRow(doc *entity.Document, totals *domainsri.ComputedTotals) core.Row {
	left := []core.Component{
		text.New("Información Adicional", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
	}
	y := 6.0
	addLeft := func(s string, bold bool) {
		p := props.Text{Size: 7.5, Top: y, Color: colorGray}
		if bold {
			p.Style = fontstyle.Bold
			p.Color = colorPrimary
		}
		left = append(left, text.New(s, p))
		y += 4.5
	}
	if doc.Payload.Buyer.Email != "" {
		addLeft("Email: "+doc.Payload.Buyer.Email, false)
	}
	if doc.Payload.Buyer.Phone != "" {
		addLeft("Teléfono: "+doc.Payload.Buyer.Phone, false)
	}
	for _, f := range doc.Payload.AdditionalInfo {
		addLeft(f.Name+": "+f.Value, false)
	}
	if len(doc.Payload.Payments) > 0 {
		y += 2
		addLeft("Forma de pago", true)
		for _, p := range doc.Payload.Payments {
			addLeft(fmt.Sprintf("%s  %s", nonEmpty(pkgsri.PaymentMethodNames[p.Method], p.Method), formatMoney(p.Total)), false)
		}
	}

	type figure struct {
		label string
		value decimal.Decimal
	}
	figures := make([]figure, 0, len(totals.Subtotals)*2+4)
	for _, s := range totals.Subtotals {
		figures = append(figures, figure{"SUBTOTAL " + rateLabel(s), s.Base})
	}
	figures = append(figures,
		figure{"SUBTOTAL SIN IMPUESTOS", totals.SubtotalNoTax},
		figure{"TOTAL DESCUENTO", totals.TotalDiscount},
	)
	for _, s := range totals.Subtotals {
		if s.Rate.IsPositive() {
			figures = append(figures, figure{"IVA " + s.Rate.String() + "%", s.Value})
		}
	}
	if doc.DocType == pkgsri.DocFactura {
		figures = append(figures, figure{"PROPINA", totals.Tip})
	}
	grandLabel := "VALOR TOTAL"
	if doc.DocType == pkgsri.DocNotaCredito {
		grandLabel = "VALOR MODIFICACIÓN"
	}

	labels := make([]core.Component, 0, len(figures)+1)
	values := make([]core.Component, 0, len(figures)+1)
	ty := 1.0
	for _, f := range figures {
		labels = append(labels, text.New(f.label, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2, Top: ty}))
		values = append(values, text.New(formatMoney(f.value), props.Text{Size: 8, Align: align.Right, Right: 1, Top: ty}))
		ty += 5
	}
	labels = append(labels, text.New(grandLabel, props.Text{
		Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Right: 2, Top: ty,
	}))
	values = append(values, text.New(formatMoney(totals.GrandTotal), props.Text{
		Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Right: 1, Top: ty,
	}))

	height := ty + 8
	if y+4 > height {
		height = y + 4
	}
	return row.New(height).Add(
		col.New(6).Add(left...),
		col.New(4).Add(labels...),
		col.New(2).Add(values...),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

// rateLabel: "12%", "0%", "NO OBJETO DE IVA", "EXENTO DE IVA".
func rateLabel(s domainsri.TaxSubtotal) string {
	switch s.RateCode {
	case pkgsri.IVANoObjeto:
		return "NO OBJETO DE IVA"
	case pkgsri.IVAExento:
		return "EXENTO DE IVA"
	}
	return s.Rate.String() + "%"
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatQuantity muestra al menos 2 decimales y hasta 6, sin ceros sobrantes.
func formatQuantity(d decimal.Decimal) string {
	r := d.Round(6)
	if r.Equal(r.Round(2)) {
		return r.StringFixed(2)
	}
	return r.String()
}
