// Package sri contiene las reglas de dominio de los comprobantes electrónicos del
// SRI (Ecuador): clave de acceso y totales. Utiliza catálogos de pkg/sri.
package sri

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

// AccessKeyLength es la longitud de la clave de acceso (48 dígitos + verificador).
const AccessKeyLength = 49

// AccessKeyInput son los campos que componen la clave de acceso (Ficha Técnica, tabla 1).
type AccessKeyInput struct {
	IssueDate     time.Time
	DocType       string // codDoc, 2 dígitos
	RUC           string // 13 dígitos
	Environment   string // 1 pruebas, 2 producción
	Establishment string // 3 dígitos
	EmissionPoint string // 3 dígitos
	Sequence      int64  // 1..999999999
	NumericCode   string // 8 dígitos; vacío = aleatorio
	EmissionType  string // 1 normal
}

// AccessKeyParts es la descomposición de una clave de acceso válida.
type AccessKeyParts struct {
	IssueDate     time.Time
	DocType       string
	RUC           string
	Environment   string
	Establishment string
	EmissionPoint string
	Sequence      int64
	NumericCode   string
	EmissionType  string
	CheckDigit    int
}

// GenerateAccessKey arma la clave de acceso de 49 dígitos:
//
//	ddmmyyyy | codDoc | ruc | ambiente | estab | ptoEmi | secuencial | codigoNumerico | tipoEmision | DV
//
// Con NumericCode fijo el resultado es determinista.
func GenerateAccessKey(in AccessKeyInput) (string, error) {
	const op = "sri.GenerateAccessKey"

	if in.IssueDate.IsZero() {
		return "", domain.InvalidInput(op, "fecha de emisión requerida")
	}
	if err := fixedDigits(op, "codDoc", in.DocType, 2); err != nil {
		return "", err
	}
	if err := fixedDigits(op, "ruc", in.RUC, 13); err != nil {
		return "", err
	}
	if in.Environment != sri.EnvironmentTest && in.Environment != sri.EnvironmentProduction {
		return "", domain.InvalidInput(op, "ambiente %q inválido (1 pruebas, 2 producción)", in.Environment)
	}
	if err := fixedDigits(op, "estab", in.Establishment, 3); err != nil {
		return "", err
	}
	if err := fixedDigits(op, "ptoEmi", in.EmissionPoint, 3); err != nil {
		return "", err
	}
	if in.Sequence < 1 || in.Sequence > sri.MaxSequence {
		return "", domain.InvalidInput(op, "secuencial %d fuera de rango (1..%d)", in.Sequence, sri.MaxSequence)
	}
	if err := fixedDigits(op, "tipoEmision", in.EmissionType, 1); err != nil {
		return "", err
	}
	code := in.NumericCode
	if code == "" {
		var err error
		if code, err = RandomNumericCode(); err != nil {
			return "", err
		}
	}
	if err := fixedDigits(op, "codigoNumerico", code, 8); err != nil {
		return "", err
	}

	base := in.IssueDate.Format("02012006") +
		in.DocType +
		in.RUC +
		in.Environment +
		in.Establishment +
		in.EmissionPoint +
		fmt.Sprintf("%09d", in.Sequence) +
		code +
		in.EmissionType

	dv, err := CheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + string(rune('0'+dv)), nil
}

// CheckDigit calcula el dígito verificador módulo 11 sobre los 48 primeros dígitos:
// pesos 2..7 cíclicos desde la derecha, 11 - (suma mod 11); 11 → 0 y 10 → 1.
func CheckDigit(digits48 string) (int, error) {
	if len(digits48) != AccessKeyLength-1 || !sri.IsDigits(digits48) {
		return 0, domain.InvalidInput("sri.CheckDigit", "se esperaban 48 dígitos, se recibieron %d caracteres", len(digits48))
	}
	sum, weight := 0, 2
	for i := len(digits48) - 1; i >= 0; i-- {
		sum += int(digits48[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch dv := 11 - sum%11; dv {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	default:
		return dv, nil
	}
}

// ValidateAccessKey comprueba longitud, contenido numérico y dígito verificador.
func ValidateAccessKey(key string) error {
	const op = "sri.ValidateAccessKey"
	if len(key) != AccessKeyLength || !sri.IsDigits(key) {
		return domain.InvalidInput(op, "la clave de acceso debe tener 49 dígitos")
	}
	dv, err := CheckDigit(key[:48])
	if err != nil {
		return err
	}
	if got := int(key[48] - '0'); got != dv {
		return domain.InvalidInput(op, "dígito verificador inválido: esperado %d, recibido %d", dv, got)
	}
	return nil
}

// ParseAccessKey valida y descompone una clave de acceso.
func ParseAccessKey(key string) (*AccessKeyParts, error) {
	if err := ValidateAccessKey(key); err != nil {
		return nil, err
	}
	date, err := time.Parse("02012006", key[0:8])
	if err != nil {
		return nil, domain.InvalidInput("sri.ParseAccessKey", "fecha de emisión inválida en la clave: %s", key[0:8])
	}
	var seq int64
	for _, c := range key[30:39] {
		seq = seq*10 + int64(c-'0')
	}
	return &AccessKeyParts{
		IssueDate:     date,
		DocType:       key[8:10],
		RUC:           key[10:23],
		Environment:   key[23:24],
		Establishment: key[24:27],
		EmissionPoint: key[27:30],
		Sequence:      seq,
		NumericCode:   key[39:47],
		EmissionType:  key[47:48],
		CheckDigit:    int(key[48] - '0'),
	}, nil
}

// RandomNumericCode devuelve un código numérico de 8 dígitos con crypto/rand.
func RandomNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", domain.InvalidInput("sri.RandomNumericCode", "no se pudo generar el código numérico: %v", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

func fixedDigits(op, field, value string, width int) error {
	if len(value) != width || !sri.IsDigits(value) {
		return domain.InvalidInput(op, "%s debe tener %d dígitos numéricos, se recibió %q", field, width, value)
	}
	return nil
}
