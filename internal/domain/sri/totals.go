package sri

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

var hundred = decimal.NewFromInt(100)

// LineTotal es una línea con su base imponible e IVA calculados.
type LineTotal struct {
	Item     entity.LineItem
	Net      decimal.Decimal // precioTotalSinImpuesto
	Rate     decimal.Decimal // tarifa (%)
	Tax      decimal.Decimal // valor del impuesto de la línea
	RateCode string
}

// TaxSubtotal agrupa las bases por (codigo, codigoPorcentaje): totalConImpuestos.
type TaxSubtotal struct {
	Code     string
	RateCode string
	Rate     decimal.Decimal
	Base     decimal.Decimal
	Value    decimal.Decimal
}

// ComputedTotals son los totales del comprobante calculados con aritmética decimal.
type ComputedTotals struct {
	Lines         []LineTotal
	Subtotals     []TaxSubtotal // en orden de primera aparición
	SubtotalNoTax decimal.Decimal
	TotalDiscount decimal.Decimal
	TotalTax      decimal.Decimal
	Tip           decimal.Decimal
	GrandTotal    decimal.Decimal
}

// ComputeTotals calcula bases, IVA por tarifa e importe total a partir de las líneas.
// El IVA de cada línea se redondea a 2 decimales y el de cada grupo es la suma de esos
// valores, de modo que Σ detalle/impuesto/valor = Σ totalImpuesto/valor y
// importeTotal = totalSinImpuestos + Σ IVA + propina se cumplen exactamente.
func ComputeTotals(items []entity.LineItem, tip decimal.Decimal) (*ComputedTotals, error) {
	const op = "sri.ComputeTotals"

	if len(items) == 0 {
		return nil, domain.DataIncomplete(op, "detalles")
	}
	if tip.IsNegative() {
		return nil, domain.InvalidInput(op, "la propina no puede ser negativa")
	}

	out := &ComputedTotals{Tip: tip.Round(2)}
	groups := map[string]*TaxSubtotal{}
	var order []string
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return nil, domain.InvalidInput(op, "detalle %d: la cantidad debe ser mayor a cero", i+1)
		}
		if it.UnitPrice.IsNegative() || it.Discount.IsNegative() {
			return nil, domain.InvalidInput(op, "detalle %d: precio y descuento no pueden ser negativos", i+1)
		}
		rate, ok := sri.IVARate(it.TaxRateCode)
		if !ok {
			return nil, domain.InvalidInput(op, "detalle %d: código de tarifa IVA %q desconocido", i+1, it.TaxRateCode)
		}
		gross := it.Quantity.Mul(it.UnitPrice)
		if it.Discount.GreaterThan(gross) {
			return nil, domain.InvalidInput(op, "detalle %d: el descuento supera el valor de la línea", i+1)
		}
		net := gross.Sub(it.Discount).Round(2)
		lt := LineTotal{
			Item:     it,
			Net:      net,
			Rate:     rate,
			Tax:      net.Mul(rate).Div(hundred).Round(2),
			RateCode: it.TaxRateCode,
		}
		out.Lines = append(out.Lines, lt)
		out.SubtotalNoTax = out.SubtotalNoTax.Add(net)
		out.TotalDiscount = out.TotalDiscount.Add(it.Discount.Round(2))

		g, ok := groups[it.TaxRateCode]
		if !ok {
			g = &TaxSubtotal{Code: sri.TaxIVA, RateCode: it.TaxRateCode, Rate: rate}
			groups[it.TaxRateCode] = g
			order = append(order, it.TaxRateCode)
		}
		g.Base = g.Base.Add(net)
		g.Value = g.Value.Add(lt.Tax)
	}

	for _, code := range order {
		g := groups[code]
		out.Subtotals = append(out.Subtotals, *g)
		out.TotalTax = out.TotalTax.Add(g.Value)
	}
	out.GrandTotal = out.SubtotalNoTax.Add(out.TotalTax).Add(out.Tip)
	return out, nil
}

// Reconcile compara los totales declarados por el colaborador con los calculados,
// con tolerancia cero. También exige que la suma de pagos cubra el importe total.
func Reconcile(computed *ComputedTotals, declared entity.Totals, payments []entity.Payment) error {
	const op = "sri.Reconcile"

	checks := []struct {
		field    string
		expected decimal.Decimal
		got      decimal.Decimal
	}{
		{"totalSinImpuestos", computed.SubtotalNoTax, declared.SubtotalNoTax},
		{"totalDescuento", computed.TotalDiscount, declared.TotalDiscount},
		{"totalImpuesto", computed.TotalTax, declared.TotalTax},
		{"importeTotal", computed.GrandTotal, declared.GrandTotal},
	}
	for _, c := range checks {
		if !c.expected.Equal(c.got) {
			return domain.ArithmeticMismatch(op, c.field, c.expected.StringFixed(2), c.got.StringFixed(2))
		}
	}
	if len(payments) > 0 {
		paid := lo.Reduce(payments, func(acc decimal.Decimal, p entity.Payment, _ int) decimal.Decimal {
			return acc.Add(p.Total)
		}, decimal.Zero)
		if !paid.Equal(computed.GrandTotal) {
			return domain.ArithmeticMismatch(op, "pagos", computed.GrandTotal.StringFixed(2), paid.StringFixed(2))
		}
	}
	return nil
}
