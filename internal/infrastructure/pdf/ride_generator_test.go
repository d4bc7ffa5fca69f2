package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

func authorizedInvoice() *entity.Document {
	authorizedAt := time.Date(2026, 2, 22, 15, 0, 5, 0, time.UTC)
	return &entity.Document{
		ID:                  "doc-1",
		CompanyID:           "emp-1",
		DocType:             pkgsri.DocFactura,
		Environment:         pkgsri.EnvironmentTest,
		EmissionType:        pkgsri.EmissionNormal,
		Establishment:       "001",
		EmissionPoint:       "001",
		Sequence:            1,
		IssueDate:           time.Date(2026, 2, 22, 10, 0, 0, 0, pkgsri.Location),
		AccessKey:           "2202202601179123456700110010010000000011234567811",
		Status:              entity.StatusAuthorized,
		AuthorizationNumber: "2202202601179123456700110010010000000011234567811",
		AuthorizedAt:        &authorizedAt,
		Payload: entity.DocumentPayload{
			Buyer: entity.Buyer{
				IDType: pkgsri.IDTypeFinalConsumer,
				ID:     pkgsri.FinalConsumerID,
				Name:   "CONSUMIDOR FINAL",
				Email:  "cliente@example.com",
			},
			Items: []entity.LineItem{
				{Code: "P001", Description: "Filtro de aceite", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10), TaxRateCode: pkgsri.IVA12},
				{Code: "P002", Description: "Manual impreso", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5), TaxRateCode: pkgsri.IVA0},
			},
			Payments: []entity.Payment{{Method: pkgsri.PaymentCash, Total: decimal.RequireFromString("27.40")}},
		},
	}
}

func testCompany() *entity.Company {
	return &entity.Company{
		ID:                 "emp-1",
		RUC:                "1791234567001",
		LegalName:          "Comercial Andina S.A.",
		HeadOfficeAddress:  "Av. Amazonas N34-120, Quito",
		Establishment:      "001",
		EmissionPoint:      "001",
		AccountingRequired: true,
	}
}

func TestRender_GeneraPDF(t *testing.T) {
	out, err := NewRIDEGenerator().Render(context.Background(), authorizedInvoice(), testCompany())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "la salida debe ser un PDF")
}

func TestRender_Determinista(t *testing.T) {
	g := NewRIDEGenerator()

	first, err := g.Render(context.Background(), authorizedInvoice(), testCompany())
	require.NoError(t, err)
	second, err := g.Render(context.Background(), authorizedInvoice(), testCompany())
	require.NoError(t, err)

	assert.Equal(t, first, second, "la misma entrada debe producir el mismo PDF")
}

func TestRender_NotaCredito(t *testing.T) {
	doc := authorizedInvoice()
	doc.DocType = pkgsri.DocNotaCredito
	doc.Payload.Payments = nil
	doc.Payload.Reason = "Devolución de mercadería"
	doc.Payload.Modified = &entity.ModifiedDocument{
		DocType:   pkgsri.DocFactura,
		Number:    "001-001-000000001",
		IssueDate: time.Date(2026, 2, 20, 0, 0, 0, 0, pkgsri.Location),
	}

	out, err := NewRIDEGenerator().Render(context.Background(), doc, testCompany())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRender_EntradaInvalida(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *entity.Document)
	}{
		{"no autorizado", func(d *entity.Document) { d.Status = entity.StatusSubmitted }},
		{"sin clave de acceso", func(d *entity.Document) { d.AccessKey = "" }},
		{"sin número de autorización", func(d *entity.Document) { d.AuthorizationNumber = "" }},
		{"sin fecha de autorización", func(d *entity.Document) { d.AuthorizedAt = nil }},
		{"sin detalles", func(d *entity.Document) { d.Payload.Items = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := authorizedInvoice()
			tt.mutate(doc)

			_, err := NewRIDEGenerator().Render(context.Background(), doc, testCompany())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRender)
		})
	}

	_, err := NewRIDEGenerator().Render(context.Background(), nil, testCompany())
	assert.ErrorIs(t, err, domain.ErrRender)
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "2.00", formatQuantity(decimal.NewFromInt(2)))
	assert.Equal(t, "0.125", formatQuantity(decimal.RequireFromString("0.125")))
	assert.Equal(t, "1.333333", formatQuantity(decimal.RequireFromString("1.3333333")))
}
