package sri

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCompany() *entity.Company {
	return &entity.Company{
		ID:                   "empresa-1",
		RUC:                  "1791234567001",
		LegalName:            "Comercial Andina S.A.",
		TradeName:            "Andina",
		HeadOfficeAddress:    "Av. Amazonas N24-03 y Colón, Quito",
		EstablishmentAddress: "Av. Amazonas N24-03 y Colón, Quito",
		Establishment:        "001",
		EmissionPoint:        "001",
		Environment:          pkgsri.EnvironmentTest,
		EmissionType:         pkgsri.EmissionNormal,
		AccountingRequired:   true,
	}
}

// testInvoice es el escenario de referencia: 10.00 × 2 al 12 % + 5.00 × 1 al 0 %,
// consumidor final, pagado en efectivo; importeTotal 27.40.
func testInvoice() *entity.Document {
	return &entity.Document{
		ID:            "doc-1",
		CompanyID:     "empresa-1",
		DocType:       pkgsri.DocFactura,
		Environment:   pkgsri.EnvironmentTest,
		EmissionType:  pkgsri.EmissionNormal,
		Establishment: "001",
		EmissionPoint: "001",
		Sequence:      1,
		IssueDate:     time.Date(2026, 2, 22, 10, 0, 0, 0, pkgsri.Location),
		AccessKey:     "2202202601179123456700110010010000000011234567811",
		NumericCode:   "12345678",
		Status:        entity.StatusPending,
		Payload: entity.DocumentPayload{
			Buyer: entity.Buyer{
				IDType: pkgsri.IDTypeFinalConsumer,
				ID:     pkgsri.FinalConsumerID,
				Name:   "CONSUMIDOR FINAL",
				Email:  "cliente@example.com",
			},
			Items: []entity.LineItem{
				{Code: "P001", Description: "Filtro de aceite", Quantity: amount("2"), UnitPrice: amount("10.00"), TaxRateCode: pkgsri.IVA12},
				{Code: "P002", Description: "Manual impreso", Quantity: amount("1"), UnitPrice: amount("5.00"), TaxRateCode: pkgsri.IVA0},
			},
			Payments: []entity.Payment{{Method: pkgsri.PaymentCash, Total: amount("27.40")}},
			Totals: entity.Totals{
				SubtotalNoTax: amount("25.00"),
				TotalDiscount: decimal.Zero,
				TotalTax:      amount("2.40"),
				GrandTotal:    amount("27.40"),
			},
		},
	}
}

// testCreditNote anula parcialmente la factura de referencia (una unidad de P001).
func testCreditNote() *entity.Document {
	doc := testInvoice()
	doc.ID = "doc-2"
	doc.DocType = pkgsri.DocNotaCredito
	doc.AccessKey = "2202202604179123456700110010010000000011234567810"
	doc.Payload.Buyer = entity.Buyer{IDType: pkgsri.IDTypeCedula, ID: "1710034065", Name: "Juan Pérez"}
	doc.Payload.Items = []entity.LineItem{
		{Code: "P001", Description: "Filtro de aceite", Quantity: amount("1"), UnitPrice: amount("10.00"), TaxRateCode: pkgsri.IVA12},
	}
	doc.Payload.Payments = nil
	doc.Payload.Totals = entity.Totals{
		SubtotalNoTax: amount("10.00"),
		TotalDiscount: decimal.Zero,
		TotalTax:      amount("1.20"),
		GrandTotal:    amount("11.20"),
	}
	doc.Payload.Reason = "Devolución de mercadería"
	doc.Payload.Modified = &entity.ModifiedDocument{
		DocType:   pkgsri.DocFactura,
		Number:    "001-001-000000001",
		IssueDate: time.Date(2026, 2, 20, 0, 0, 0, 0, pkgsri.Location),
	}
	return doc
}
