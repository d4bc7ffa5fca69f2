package sri

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// cleanText normaliza a NFC, elimina caracteres de control y colapsa espacios.
// El SRI rechaza comprobantes con saltos de línea o tabulaciones en campos de texto.
func cleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// formatMoney formatea montos con 2 decimales fijos (punto decimal).
func formatMoney(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatQuantity usa 2 decimales si alcanzan y hasta 6 en otro caso
// (cantidad y precioUnitario admiten 6 dígitos fraccionarios).
func formatQuantity(d decimal.Decimal) string {
	r := d.Round(6)
	if r.Equal(r.Round(2)) {
		return r.StringFixed(2)
	}
	return r.String()
}

// formatRate formatea la tarifa de IVA sin decimales superfluos (12, 0, 15).
func formatRate(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.String()
}
