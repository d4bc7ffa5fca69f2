package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale es la venta finalizada que entrega el módulo de ventas; entrada del pipeline.
type Sale struct {
	ID             string
	IssueDate      time.Time
	Buyer          Buyer
	Items          []LineItem
	Payments       []Payment
	Totals         Totals // totales declarados por el colaborador; se concilian contra las líneas
	Tip            decimal.Decimal
	AdditionalInfo []AdditionalField
}

// Buyer identifica al comprador.
type Buyer struct {
	IDType  string `json:"id_type"` // 04 RUC, 05 cédula, 06 pasaporte, 07 consumidor final
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// LineItem es una línea de detalle.
type LineItem struct {
	Code        string          `json:"code"`
	AuxCode     string          `json:"aux_code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRateCode string          `json:"tax_rate_code"` // codigoPorcentaje IVA (0, 2, 3, 4, 5, 6, 7, 8, 10)
}

// Payment es una forma de pago del comprobante.
type Payment struct {
	Method   string          `json:"method"` // formaPago SRI (01 efectivo, 19 tarjeta de crédito, 20 otros con sistema financiero)
	Total    decimal.Decimal `json:"total"`
	Term     int             `json:"term,omitempty"`
	TimeUnit string          `json:"time_unit,omitempty"` // dias, meses
}

// Totals son los totales del comprobante.
type Totals struct {
	SubtotalNoTax decimal.Decimal `json:"subtotal_no_tax"` // totalSinImpuestos
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"` // importeTotal
}

// AdditionalField es un campoAdicional de infoAdicional.
type AdditionalField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
