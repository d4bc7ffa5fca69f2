package sri

import (
	"regexp"
	"strconv"
)

// unbounded equivale a maxOccurs="unbounded".
const unbounded = -1

// elementRule describe un elemento del esquema: cardinalidad, tipo simple (hojas)
// o secuencia ordenada de hijos (tipos complejos).
type elementRule struct {
	Name     string
	Min, Max int
	Type     *simpleType
	Attrs    []attrRule
	Children []elementRule // secuencia; vacío = hoja
	Any      bool          // contenido libre (ds:Signature)
}

type attrRule struct {
	Name     string
	Required bool
	Type     *simpleType
}

// simpleType son las facetas XSD aplicadas al texto de una hoja o atributo.
type simpleType struct {
	Desc      string
	Pattern   *regexp.Regexp
	Enum      []string
	MinLen    int
	MaxLen    int
	Total     int // totalDigits (decimales)
	Fractions int // fractionDigits
	Decimal   bool
}

// ── Tipos simples (factura_V1.1.0.xsd / notaCredito_V1.1.0.xsd) ──────────────

func str(max int) *simpleType {
	return &simpleType{Desc: "texto de 1 a " + strconv.Itoa(max) + " caracteres", MinLen: 1, MaxLen: max}
}

func pattern(expr, desc string) *simpleType {
	return &simpleType{Desc: desc, Pattern: regexp.MustCompile("^(?:" + expr + ")$")}
}

func enum(values ...string) *simpleType {
	return &simpleType{Desc: "uno de los valores permitidos", Enum: values}
}

func dec(total, fractions int) *simpleType {
	return &simpleType{
		Desc:      "decimal con máximo " + strconv.Itoa(total) + " dígitos y " + strconv.Itoa(fractions) + " decimales",
		Decimal:   true,
		Total:     total,
		Fractions: fractions,
	}
}

var (
	tAmbiente    = pattern(`[12]`, "1 o 2")
	tTipoEmision = pattern(`1`, "1")
	tRUC         = pattern(`[0-9]{10}[0-9]{3}`, "RUC de 13 dígitos")
	tClaveAcceso = pattern(`[0-9]{49}`, "49 dígitos")
	tCodDoc      = pattern(`[0-9]{2}`, "2 dígitos")
	tTresDigitos = pattern(`[0-9]{3}`, "3 dígitos")
	tSecuencial  = pattern(`[0-9]{9}`, "9 dígitos")
	tFecha       = pattern(`(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/20[0-9]{2}`, "fecha dd/mm/aaaa")
	tContribEsp  = pattern(`[0-9A-Za-z]{3,13}`, "3 a 13 caracteres alfanuméricos")
	tSiNo        = enum("SI", "NO")
	tTipoIdent   = pattern(`0[4-8]`, "04 a 08")
	tIdent       = str(20)
	tTexto300    = str(300)
	tCodigo25    = str(25)
	tMoneda      = str(15)
	tUnidad      = str(10)
	tImpuesto    = enum("2", "3", "5")
	tCodPorc     = pattern(`[0-9]{1,4}`, "1 a 4 dígitos")
	tFormaPago   = pattern(`[0-9]{2}`, "2 dígitos")
	tNumDoc      = pattern(`[0-9]{3}-[0-9]{3}-[0-9]{9}`, "estab-ptoEmi-secuencial")
	tMonto       = dec(14, 2)
	tCantidad    = dec(18, 6)
	tTarifa      = dec(6, 2)
	tVersion     = pattern(`1\.[01]\.[0-9]`, "versión 1.0.x o 1.1.x")
	tID          = enum(RootID)
)

func req(name string, t *simpleType) elementRule { return elementRule{Name: name, Min: 1, Max: 1, Type: t} }
func opt(name string, t *simpleType) elementRule { return elementRule{Name: name, Min: 0, Max: 1, Type: t} }

func group(name string, min, max int, children ...elementRule) elementRule {
	return elementRule{Name: name, Min: min, Max: max, Children: children}
}

// ── Bloques compartidos ──────────────────────────────────────────────────────

func infoTributariaRule(codDoc string) elementRule {
	return group("infoTributaria", 1, 1,
		req("ambiente", tAmbiente),
		req("tipoEmision", tTipoEmision),
		req("razonSocial", tTexto300),
		opt("nombreComercial", tTexto300),
		req("ruc", tRUC),
		req("claveAcceso", tClaveAcceso),
		req("codDoc", enum(codDoc)),
		req("estab", tTresDigitos),
		req("ptoEmi", tTresDigitos),
		req("secuencial", tSecuencial),
		req("dirMatriz", tTexto300),
	)
}

func totalConImpuestosRule(withTarifa bool) elementRule {
	children := []elementRule{
		req("codigo", tImpuesto),
		req("codigoPorcentaje", tCodPorc),
		opt("descuentoAdicional", tMonto),
		req("baseImponible", tMonto),
	}
	if withTarifa {
		children = append(children, opt("tarifa", tTarifa))
	}
	children = append(children, req("valor", tMonto))
	return group("totalConImpuestos", 1, 1, group("totalImpuesto", 1, unbounded, children...))
}

func detallesRule(codeTag, auxTag string) elementRule {
	return group("detalles", 1, 1,
		group("detalle", 1, unbounded,
			req(codeTag, tCodigo25),
			opt(auxTag, tCodigo25),
			req("descripcion", tTexto300),
			req("cantidad", tCantidad),
			req("precioUnitario", tCantidad),
			req("descuento", tMonto),
			req("precioTotalSinImpuesto", tMonto),
			group("impuestos", 1, 1,
				group("impuesto", 1, unbounded,
					req("codigo", tImpuesto),
					req("codigoPorcentaje", tCodPorc),
					req("tarifa", tTarifa),
					req("baseImponible", tMonto),
					req("valor", tMonto),
				),
			),
		),
	)
}

func infoAdicionalRule() elementRule {
	campo := elementRule{
		Name: "campoAdicional", Min: 1, Max: 15, Type: tTexto300,
		Attrs: []attrRule{{Name: "nombre", Required: true, Type: tTexto300}},
	}
	return group("infoAdicional", 0, 1, campo)
}

func signatureRule() elementRule {
	return elementRule{Name: "Signature", Min: 0, Max: 1, Any: true}
}

func rootAttrs() []attrRule {
	return []attrRule{
		{Name: "id", Required: true, Type: tID},
		{Name: "version", Required: true, Type: tVersion},
	}
}

// ── Esquemas por tipo de comprobante ─────────────────────────────────────────

var facturaSchema = elementRule{
	Name: "factura", Min: 1, Max: 1, Attrs: rootAttrs(),
	Children: []elementRule{
		infoTributariaRule("01"),
		group("infoFactura", 1, 1,
			req("fechaEmision", tFecha),
			opt("dirEstablecimiento", tTexto300),
			opt("contribuyenteEspecial", tContribEsp),
			opt("obligadoContabilidad", tSiNo),
			req("tipoIdentificacionComprador", tTipoIdent),
			req("razonSocialComprador", tTexto300),
			req("identificacionComprador", tIdent),
			opt("direccionComprador", tTexto300),
			req("totalSinImpuestos", tMonto),
			req("totalDescuento", tMonto),
			totalConImpuestosRule(true),
			opt("propina", tMonto),
			req("importeTotal", tMonto),
			opt("moneda", tMoneda),
			group("pagos", 0, 1,
				group("pago", 1, unbounded,
					req("formaPago", tFormaPago),
					req("total", tMonto),
					opt("plazo", tMonto),
					opt("unidadTiempo", tUnidad),
				),
			),
		),
		detallesRule("codigoPrincipal", "codigoAuxiliar"),
		infoAdicionalRule(),
		signatureRule(),
	},
}

var notaCreditoSchema = elementRule{
	Name: "notaCredito", Min: 1, Max: 1, Attrs: rootAttrs(),
	Children: []elementRule{
		infoTributariaRule("04"),
		group("infoNotaCredito", 1, 1,
			req("fechaEmision", tFecha),
			opt("dirEstablecimiento", tTexto300),
			req("tipoIdentificacionComprador", tTipoIdent),
			req("razonSocialComprador", tTexto300),
			req("identificacionComprador", tIdent),
			opt("contribuyenteEspecial", tContribEsp),
			opt("obligadoContabilidad", tSiNo),
			req("codDocModificado", tCodDoc),
			req("numDocModificado", tNumDoc),
			req("fechaEmisionDocSustento", tFecha),
			req("totalSinImpuestos", tMonto),
			req("valorModificacion", tMonto),
			opt("moneda", tMoneda),
			totalConImpuestosRule(false),
			req("motivo", tTexto300),
		),
		detallesRule("codigoInterno", "codigoAdicional"),
		infoAdicionalRule(),
		signatureRule(),
	},
}

// schemas indexa los esquemas por nombre del elemento raíz.
var schemas = map[string]*elementRule{
	"factura":     &facturaSchema,
	"notaCredito": &notaCreditoSchema,
}
