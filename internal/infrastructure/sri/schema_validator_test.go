package sri

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

func validInvoiceXML(t *testing.T) []byte {
	t.Helper()
	out, err := NewXMLBuilderService().Build(&BuildContext{Document: testInvoice(), Company: testCompany()})
	require.NoError(t, err)
	return out
}

func rules(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.String())
	}
	return out
}

func TestSchemaValidator_DocumentoValido(t *testing.T) {
	assert.Empty(t, NewSchemaValidator().Check(validInvoiceXML(t)))
}

func TestSchemaValidator_ReportaTodasLasViolaciones(t *testing.T) {
	xmlStr := string(validInvoiceXML(t))
	xmlStr = strings.Replace(xmlStr, "<ambiente>1</ambiente>", "<ambiente>3</ambiente>", 1)
	xmlStr = strings.Replace(xmlStr, "<fechaEmision>22/02/2026</fechaEmision>", "<fechaEmision>2026-02-22</fechaEmision>", 1)
	xmlStr = strings.Replace(xmlStr, "<importeTotal>27.40</importeTotal>", "<importeTotal>27.405</importeTotal>", 1)

	violations := NewSchemaValidator().Check([]byte(xmlStr))
	require.Len(t, violations, 3, "%v", rules(violations))
	assert.Equal(t, "/factura/infoTributaria/ambiente", violations[0].Path)
	assert.Equal(t, "/factura/infoFactura/fechaEmision", violations[1].Path)
	assert.Equal(t, "/factura/infoFactura/importeTotal", violations[2].Path)
}

func TestSchemaValidator_ElementoAusenteYFueraDeOrden(t *testing.T) {
	xmlStr := string(validInvoiceXML(t))
	start := strings.Index(xmlStr, "<claveAcceso>")
	end := strings.Index(xmlStr, "</claveAcceso>") + len("</claveAcceso>")
	xmlStr = xmlStr[:start] + xmlStr[end:]
	xmlStr = strings.Replace(xmlStr, "</infoAdicional>", "</infoAdicional>\n  <extra>x</extra>", 1)

	got := rules(NewSchemaValidator().Check([]byte(xmlStr)))
	assert.Contains(t, got, "/factura/infoTributaria/claveAcceso: elemento obligatorio ausente o fuera de orden")
	assert.Contains(t, got, "/factura/extra: elemento no esperado en esta posición")
}

func TestSchemaValidator_AtributosDeRaiz(t *testing.T) {
	xmlStr := strings.Replace(string(validInvoiceXML(t)), `id="comprobante"`, `id="otro"`, 1)
	xmlStr = strings.Replace(xmlStr, ` version="1.1.0"`, "", 1)

	got := rules(NewSchemaValidator().Check([]byte(xmlStr)))
	require.Len(t, got, 2, "%v", got)
	assert.Contains(t, got[0], "/factura/@id")
	assert.Equal(t, "/factura/@version: atributo obligatorio ausente", got[1])
}

func TestSchemaValidator_AceptaFirma(t *testing.T) {
	xmlStr := strings.Replace(string(validInvoiceXML(t)), "</factura>",
		`<ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#"><ds:SignedInfo/></ds:Signature></factura>`, 1)
	assert.Empty(t, NewSchemaValidator().Check([]byte(xmlStr)))
}

func TestSchemaValidator_LongitudMaxima(t *testing.T) {
	xmlStr := strings.Replace(string(validInvoiceXML(t)), "<descripcion>Manual impreso</descripcion>",
		"<descripcion>"+strings.Repeat("x", 301)+"</descripcion>", 1)

	got := rules(NewSchemaValidator().Check([]byte(xmlStr)))
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "/factura/detalles/detalle[2]/descripcion")
}

func TestSchemaValidator_MalFormadoYNoSoportado(t *testing.T) {
	v := NewSchemaValidator()

	got := v.Check([]byte("<factura id=><infoTributaria>"))
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Rule, "XML mal formado")

	got = v.Check([]byte(`<guiaRemision id="comprobante" version="1.1.0"/>`))
	require.Len(t, got, 1)
	assert.Equal(t, "tipo de comprobante no soportado", got[0].Rule)
}

func TestSchemaValidator_ValidateDevuelveErrorTipado(t *testing.T) {
	bad := bytes.Replace(validInvoiceXML(t), []byte("<ambiente>1</ambiente>"), []byte("<ambiente>9</ambiente>"), 1)

	err := NewSchemaValidator().Validate(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaValidation)
	require.Len(t, domain.DetailsOf(err), 1)
	assert.Contains(t, domain.DetailsOf(err)[0], "/factura/infoTributaria/ambiente")
}

func TestSchemaValidator_NoModificaLaEntrada(t *testing.T) {
	in := validInvoiceXML(t)
	snapshot := bytes.Clone(in)

	require.NoError(t, NewSchemaValidator().Validate(in))
	assert.Equal(t, snapshot, in)
}
