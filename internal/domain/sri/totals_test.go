package sri_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// escenario de referencia: 10.00 × 2 al 12 % + 5.00 × 1 al 0 %, pagado en efectivo.
func scenarioItems() []entity.LineItem {
	return []entity.LineItem{
		{Code: "P001", Description: "Filtro de aceite", Quantity: dec("2"), UnitPrice: dec("10.00"), TaxRateCode: pkgsri.IVA12},
		{Code: "P002", Description: "Manual impreso", Quantity: dec("1"), UnitPrice: dec("5.00"), TaxRateCode: pkgsri.IVA0},
	}
}

func TestComputeTotals_Escenario2740(t *testing.T) {
	tot, err := sri.ComputeTotals(scenarioItems(), decimal.Zero)
	require.NoError(t, err)

	assert.True(t, tot.SubtotalNoTax.Equal(dec("25.00")), "subtotal %s", tot.SubtotalNoTax)
	assert.True(t, tot.TotalTax.Equal(dec("2.40")), "IVA %s", tot.TotalTax)
	assert.True(t, tot.GrandTotal.Equal(dec("27.40")), "importe total %s", tot.GrandTotal)

	require.Len(t, tot.Subtotals, 2, "un grupo por tarifa")
	assert.Equal(t, pkgsri.IVA12, tot.Subtotals[0].RateCode)
	assert.True(t, tot.Subtotals[0].Base.Equal(dec("20.00")))
	assert.True(t, tot.Subtotals[0].Value.Equal(dec("2.40")))
	assert.Equal(t, pkgsri.IVA0, tot.Subtotals[1].RateCode)
	assert.True(t, tot.Subtotals[1].Value.IsZero())
}

func TestComputeTotals_SumaDeLineasMasIVAIgualTotal(t *testing.T) {
	items := []entity.LineItem{
		{Quantity: dec("3"), UnitPrice: dec("1.333333"), TaxRateCode: pkgsri.IVA15},
		{Quantity: dec("0.5"), UnitPrice: dec("7.99"), Discount: dec("0.10"), TaxRateCode: pkgsri.IVA15},
		{Quantity: dec("7"), UnitPrice: dec("0.07"), TaxRateCode: pkgsri.IVA5},
		{Quantity: dec("1"), UnitPrice: dec("12.345"), TaxRateCode: pkgsri.IVAExento},
	}
	tot, err := sri.ComputeTotals(items, dec("1.50"))
	require.NoError(t, err)

	sumNet, sumTax := decimal.Zero, decimal.Zero
	for _, l := range tot.Lines {
		sumNet = sumNet.Add(l.Net)
		sumTax = sumTax.Add(l.Tax)
	}
	groupTax := decimal.Zero
	for _, g := range tot.Subtotals {
		groupTax = groupTax.Add(g.Value)
	}
	assert.True(t, sumNet.Equal(tot.SubtotalNoTax))
	assert.True(t, groupTax.Equal(sumTax), "Σ IVA de grupos debe igualar Σ IVA de líneas")
	assert.True(t, sumNet.Add(sumTax).Add(dec("1.50")).Equal(tot.GrandTotal),
		"Σ líneas + Σ IVA + propina debe igualar el importe total sin deriva de redondeo")
}

func TestComputeTotals_IVADeGrupoEsSumaDeLineas(t *testing.T) {
	// Tres líneas de 0.05 al 15 %: cada IVA redondea a 0.01, la base agrupada daría 0.02.
	items := []entity.LineItem{
		{Code: "A", Description: "Arandela", Quantity: dec("1"), UnitPrice: dec("0.05"), TaxRateCode: pkgsri.IVA15},
		{Code: "B", Description: "Arandela", Quantity: dec("1"), UnitPrice: dec("0.05"), TaxRateCode: pkgsri.IVA15},
		{Code: "C", Description: "Arandela", Quantity: dec("1"), UnitPrice: dec("0.05"), TaxRateCode: pkgsri.IVA15},
	}
	tot, err := sri.ComputeTotals(items, decimal.Zero)
	require.NoError(t, err)

	lineNet, lineTax := decimal.Zero, decimal.Zero
	for _, l := range tot.Lines {
		lineNet = lineNet.Add(l.Net)
		lineTax = lineTax.Add(l.Tax)
	}
	require.Len(t, tot.Subtotals, 1)
	assert.True(t, tot.Subtotals[0].Value.Equal(lineTax),
		"el IVA del grupo (%s) debe ser la suma del IVA de sus líneas (%s)", tot.Subtotals[0].Value, lineTax)
	assert.True(t, tot.TotalTax.Equal(dec("0.03")), "IVA total %s", tot.TotalTax)
	assert.True(t, lineNet.Add(lineTax).Equal(tot.GrandTotal),
		"Σ (base + IVA) de las líneas debe igualar el importe total")
}

func TestComputeTotals_EntradasInvalidas(t *testing.T) {
	_, err := sri.ComputeTotals(nil, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrDataIncomplete))

	_, err = sri.ComputeTotals([]entity.LineItem{{Quantity: dec("1"), UnitPrice: dec("1"), TaxRateCode: "99"}}, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "tarifa desconocida")

	_, err = sri.ComputeTotals([]entity.LineItem{{Quantity: dec("0"), UnitPrice: dec("1"), TaxRateCode: pkgsri.IVA0}}, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "cantidad cero")

	_, err = sri.ComputeTotals([]entity.LineItem{{Quantity: dec("1"), UnitPrice: dec("1"), Discount: dec("2"), TaxRateCode: pkgsri.IVA0}}, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "descuento mayor a la línea")
}

func TestReconcile(t *testing.T) {
	tot, err := sri.ComputeTotals(scenarioItems(), decimal.Zero)
	require.NoError(t, err)

	declared := entity.Totals{
		SubtotalNoTax: dec("25.00"),
		TotalDiscount: dec("0"),
		TotalTax:      dec("2.40"),
		GrandTotal:    dec("27.40"),
	}
	cash := []entity.Payment{{Method: pkgsri.PaymentCash, Total: dec("27.40")}}
	require.NoError(t, sri.Reconcile(tot, declared, cash))

	off := declared
	off.GrandTotal = dec("27.41")
	err = sri.Reconcile(tot, off, cash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrArithmeticMismatch))
	assert.Contains(t, err.Error(), "importeTotal")

	err = sri.Reconcile(tot, declared, []entity.Payment{{Method: pkgsri.PaymentCash, Total: dec("20.00")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pagos")
}
