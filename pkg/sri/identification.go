package sri

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// coeficientes del módulo 10 para la cédula ecuatoriana (Registro Civil).
var cedulaWeights = [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}

// ValidateCedula valida una cédula de 10 dígitos: código de provincia (01-24, 30),
// tercer dígito menor a 6 y dígito verificador módulo 10.
func ValidateCedula(id string) error {
	if len(id) != 10 || !IsDigits(id) {
		return fmt.Errorf("sri: la cédula debe tener 10 dígitos numéricos")
	}
	province, _ := strconv.Atoi(id[:2])
	if (province < 1 || province > 24) && province != 30 {
		return fmt.Errorf("sri: código de provincia %02d inválido", province)
	}
	if id[2] >= '6' {
		return fmt.Errorf("sri: el tercer dígito de la cédula debe ser menor a 6")
	}
	var sum int
	for i, w := range cedulaWeights {
		p := int(id[i]-'0') * w
		if p > 9 {
			p -= 9
		}
		sum += p
	}
	expected := (10 - sum%10) % 10
	if int(id[9]-'0') != expected {
		return fmt.Errorf("sri: dígito verificador de la cédula inválido: esperado %d, recibido %c", expected, id[9])
	}
	return nil
}

// ValidateRUC valida un RUC de 13 dígitos. Para personas naturales (tercer dígito
// 0-5) los 10 primeros dígitos deben ser una cédula válida; sociedades públicas (6)
// y privadas (9) se validan por estructura.
func ValidateRUC(ruc string) error {
	if len(ruc) != 13 || !IsDigits(ruc) {
		return fmt.Errorf("sri: el RUC debe tener 13 dígitos numéricos")
	}
	if ruc[10:] == "000" {
		return fmt.Errorf("sri: el RUC debe terminar en un establecimiento válido (001)")
	}
	switch {
	case ruc[2] < '6':
		if err := ValidateCedula(ruc[:10]); err != nil {
			return fmt.Errorf("sri: RUC de persona natural: %w", err)
		}
	case ruc[2] == '6', ruc[2] == '9':
		province, _ := strconv.Atoi(ruc[:2])
		if (province < 1 || province > 24) && province != 30 {
			return fmt.Errorf("sri: código de provincia %02d inválido", province)
		}
	default:
		return fmt.Errorf("sri: tercer dígito del RUC inválido: %c", ruc[2])
	}
	return nil
}

// ValidateBuyerID valida la identificación del comprador según su tipo (Tabla 6).
// El consumidor final solo se admite hasta FinalConsumerMaxTotal.
func ValidateBuyerID(idType, id string, total decimal.Decimal) error {
	switch idType {
	case IDTypeCedula:
		return ValidateCedula(id)
	case IDTypeRUC:
		return ValidateRUC(id)
	case IDTypeFinalConsumer:
		if id != FinalConsumerID {
			return fmt.Errorf("sri: consumidor final debe identificarse como %s", FinalConsumerID)
		}
		if total.GreaterThan(FinalConsumerMaxTotal) {
			return fmt.Errorf("sri: consumidor final no admite importes mayores a %s USD", FinalConsumerMaxTotal.StringFixed(2))
		}
		return nil
	case IDTypePassport, IDTypeForeign:
		if id == "" || len(id) > 20 {
			return fmt.Errorf("sri: identificación del exterior debe tener entre 1 y 20 caracteres")
		}
		return nil
	}
	return fmt.Errorf("sri: tipo de identificación %q desconocido", idType)
}

// IsDigits indica si s es no vacío y solo contiene dígitos ASCII.
func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
