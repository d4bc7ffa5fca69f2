// Package sri contiene catálogos y validaciones alineados a la Ficha Técnica de
// Comprobantes Electrónicos del SRI (Ecuador), esquema offline.
package sri

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location es la hora de Ecuador continental (UTC-5, sin horario de verano).
// Las fechas de emisión y el SigningTime se expresan en esta zona.
var Location = time.FixedZone("ECT", -5*60*60)

// =============================================================================
// Tabla 3 - Tipos de comprobante (codDoc)
// =============================================================================

const (
	DocFactura      = "01"
	DocLiquidacion  = "03"
	DocNotaCredito  = "04"
	DocNotaDebito   = "05"
	DocGuiaRemision = "06"
	DocRetencion    = "07"

	MaxSequence int64 = 999_999_999
)

// DocTypeNames nombre legible de cada codDoc (RIDE, asunto del correo).
var DocTypeNames = map[string]string{
	DocFactura:      "FACTURA",
	DocLiquidacion:  "LIQUIDACIÓN DE COMPRA",
	DocNotaCredito:  "NOTA DE CRÉDITO",
	DocNotaDebito:   "NOTA DE DÉBITO",
	DocGuiaRemision: "GUÍA DE REMISIÓN",
	DocRetencion:    "COMPROBANTE DE RETENCIÓN",
}

// IsKnownDocType indica si codDoc pertenece a la Tabla 3.
func IsKnownDocType(codDoc string) bool {
	_, ok := DocTypeNames[codDoc]
	return ok
}

// =============================================================================
// Tabla 4 - Ambientes / Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas (celcer)
	EnvironmentProduction = "2" // Producción (cel)

	EmissionNormal = "1"
)

// EnvironmentName devuelve PRUEBAS o PRODUCCIÓN.
func EnvironmentName(env string) string {
	if env == EnvironmentProduction {
		return "PRODUCCIÓN"
	}
	return "PRUEBAS"
}

// =============================================================================
// Tabla 6 - Tipo de identificación del comprador
// =============================================================================

const (
	IDTypeRUC           = "04"
	IDTypeCedula        = "05"
	IDTypePassport      = "06"
	IDTypeFinalConsumer = "07"
	IDTypeForeign       = "08"

	// FinalConsumerID es la identificación fija de consumidor final.
	FinalConsumerID = "9999999999999"
)

// FinalConsumerMaxTotal es el importe máximo admitido para consumidor final (USD).
var FinalConsumerMaxTotal = decimal.NewFromInt(50)

// =============================================================================
// Tabla 16/17 - Impuestos y códigos de porcentaje de IVA
// =============================================================================

const (
	TaxIVA = "2"
	TaxICE = "3"

	IVA0        = "0"
	IVA12       = "2"
	IVA14       = "3"
	IVA15       = "4"
	IVA5        = "5"
	IVANoObjeto = "6"
	IVAExento   = "7"
	IVA13       = "10"
)

// IVARates tarifa (%) de cada codigoPorcentaje de IVA.
var IVARates = map[string]decimal.Decimal{
	IVA0:        decimal.Zero,
	IVA12:       decimal.NewFromInt(12),
	IVA14:       decimal.NewFromInt(14),
	IVA15:       decimal.NewFromInt(15),
	IVA5:        decimal.NewFromInt(5),
	IVANoObjeto: decimal.Zero,
	IVAExento:   decimal.Zero,
	IVA13:       decimal.NewFromInt(13),
}

// IVARate devuelve la tarifa del codigoPorcentaje y si existe.
func IVARate(code string) (decimal.Decimal, bool) {
	r, ok := IVARates[code]
	return r, ok
}

// =============================================================================
// Tabla 24 - Formas de pago
// =============================================================================

const (
	PaymentCash             = "01" // Sin utilización del sistema financiero
	PaymentDebtCompensation = "15"
	PaymentDebitCard        = "16"
	PaymentElectronicMoney  = "17"
	PaymentPrepaidCard      = "18"
	PaymentCreditCard       = "19"
	PaymentFinancialSystem  = "20" // Otros con utilización del sistema financiero
	PaymentEndorsement      = "21"
)

// PaymentMethodNames descripción de cada forma de pago (RIDE).
var PaymentMethodNames = map[string]string{
	PaymentCash:             "SIN UTILIZACIÓN DEL SISTEMA FINANCIERO",
	PaymentDebtCompensation: "COMPENSACIÓN DE DEUDAS",
	PaymentDebitCard:        "TARJETA DE DÉBITO",
	PaymentElectronicMoney:  "DINERO ELECTRÓNICO",
	PaymentPrepaidCard:      "TARJETA PREPAGO",
	PaymentCreditCard:       "TARJETA DE CRÉDITO",
	PaymentFinancialSystem:  "OTROS CON UTILIZACIÓN DEL SISTEMA FINANCIERO",
	PaymentEndorsement:      "ENDOSO DE TÍTULOS",
}

// Moneda fija de los comprobantes.
const Currency = "DOLAR"

// Identificadores de mensajes de recepción que indican que el comprobante ya fue
// recibido en un intento anterior.
const (
	MsgAccessKeyRegistered = "43" // CLAVE ACCESO REGISTRADA
	MsgAccessKeyInProcess  = "70" // CLAVE DE ACCESO EN PROCESAMIENTO
)
