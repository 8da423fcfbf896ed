package record

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Patrones normativos de importes, tipos impositivos y huellas.
var (
	amountPattern = regexp.MustCompile(`^-?\d{1,12}\.\d{2}$`)
	ratePattern   = regexp.MustCompile(`^\d{1,3}\.\d{2}$`)
	hashPattern   = regexp.MustCompile(`^[0-9A-F]{64}$`)
)

// toleranceOffsets son las desviaciones de redondeo legalmente admitidas al
// comparar un importe declarado contra el calculado. Se prueban en este orden
// y se acepta la primera coincidencia; el primer elemento (0) es el valor que
// se reporta como esperado en los mensajes de error.
var toleranceOffsets = []decimal.Decimal{
	decimal.Zero,
	decimal.New(-1, -2), // -0.01
	decimal.New(1, -2),  // +0.01
	decimal.New(-2, -2), // -0.02
	decimal.New(2, -2),  // +0.02
}

// matchesWithTolerance comprueba si el importe declarado coincide con el
// esperado dentro de las desviaciones admitidas. La comparación es de cadenas
// tras formatear a 2 decimales, no numérica: los ceros finales son normativos.
func matchesWithTolerance(declared string, expected decimal.Decimal) bool {
	for _, offset := range toleranceOffsets {
		if declared == expected.Add(offset).StringFixed(2) {
			return true
		}
	}
	return false
}

// ── Reglas de campo ───────────────────────────────────────────────────────────

func checkRequired(vs *[]Violation, field, value string) {
	if value == "" {
		*vs = append(*vs, Violation{Field: field, Message: "This value should not be blank"})
	}
}

func checkMaxLen(vs *[]Violation, field, value string, max int) {
	if len([]rune(value)) > max {
		*vs = append(*vs, Violation{Field: field, Message: fmt.Sprintf("This value is too long, it should have %d characters or less", max)})
	}
}

func checkExactLen(vs *[]Violation, field, value string, length int) {
	if len([]rune(value)) != length {
		*vs = append(*vs, Violation{Field: field, Message: fmt.Sprintf("This value should have exactly %d characters", length)})
	}
}

func checkAmount(vs *[]Violation, field, value string) {
	if !amountPattern.MatchString(value) {
		*vs = append(*vs, Violation{Field: field, Message: "This value is not a valid amount"})
	}
}

func checkRate(vs *[]Violation, field, value string) {
	if !ratePattern.MatchString(value) {
		*vs = append(*vs, Violation{Field: field, Message: "This value is not a valid rate"})
	}
}

func checkHash(vs *[]Violation, field, value string) {
	if !hashPattern.MatchString(value) {
		*vs = append(*vs, Violation{Field: field, Message: "This value is not a valid SHA-256 fingerprint"})
	}
}

// prefix reubica violaciones de una entidad anidada bajo la ruta del padre.
func prefix(path string, vs []Violation) []Violation {
	out := make([]Violation, len(vs))
	for i, v := range vs {
		out[i] = Violation{Field: path + "." + v.Field, Message: v.Message}
	}
	return out
}
