package record

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

// BreakdownEntry es una línea de desglose de impuestos de una factura
// (elemento DetalleDesglose).
//
// Los campos opcionales son punteros: un puntero nil significa "no aplica" y
// el códec omite el elemento correspondiente.
type BreakdownEntry struct {
	// Impuesto de aplicación.
	TaxType verifactu.TaxType
	// Clave de régimen del impuesto u operación con trascendencia tributaria.
	RegimeType verifactu.RegimeType
	// Calificación de la operación (sujeta, no sujeta o exenta).
	OperationType verifactu.OperationType
	// Base imponible o importe no sujeto.
	BaseAmount string
	// Porcentaje aplicado sobre la base imponible (TipoImpositivo).
	TaxRate *string
	// Cuota resultante (CuotaRepercutida).
	TaxAmount *string
	// Porcentaje del recargo de equivalencia (TipoRecargoEquivalencia).
	SurchargeRate *string
	// Cuota del recargo de equivalencia (CuotaRecargoEquivalencia).
	SurchargeAmount *string
	// Causa de exención (CausaExencion, 2 caracteres).
	ExemptReasonCode *string
	// Descripción de la exención (DescripcionExencion).
	ExemptReason *string
}

// Validate aplica las reglas de campo y las reglas cruzadas de la línea.
func (b BreakdownEntry) Validate() []Violation {
	var vs []Violation

	// Reglas de campo
	if !b.TaxType.Valid() {
		vs = append(vs, Violation{Field: "taxType", Message: "This value is not a valid tax type"})
	}
	if !b.RegimeType.Valid() {
		vs = append(vs, Violation{Field: "regimeType", Message: "This value is not a valid regime type"})
	}
	if !b.OperationType.Valid() {
		vs = append(vs, Violation{Field: "operationType", Message: "This value is not a valid operation type"})
	}
	checkAmount(&vs, "baseAmount", b.BaseAmount)
	if b.TaxRate != nil {
		checkRate(&vs, "taxRate", *b.TaxRate)
	}
	if b.TaxAmount != nil {
		checkAmount(&vs, "taxAmount", *b.TaxAmount)
	}
	if b.SurchargeRate != nil {
		checkRate(&vs, "surchargeRate", *b.SurchargeRate)
	}
	if b.SurchargeAmount != nil {
		checkAmount(&vs, "surchargeAmount", *b.SurchargeAmount)
	}
	if b.ExemptReasonCode != nil {
		checkExactLen(&vs, "exemptReasonCode", *b.ExemptReasonCode, 2)
	}
	if b.ExemptReason != nil {
		checkMaxLen(&vs, "exemptReason", *b.ExemptReason, 500)
	}

	// Reglas cruzadas
	vs = append(vs, b.validateTaxPair()...)
	vs = append(vs, b.validateSurchargePair()...)
	return vs
}

// validateTaxPair exige tipo y cuota en operaciones sujetas (y que sean
// coherentes entre sí) y los prohíbe en operaciones no sujetas o exentas.
func (b BreakdownEntry) validateTaxPair() []Violation {
	var vs []Violation
	if b.OperationType.IsSubject() {
		if b.TaxRate == nil {
			vs = append(vs, Violation{Field: "taxRate", Message: "Missing tax rate for subject operation"})
		}
		if b.TaxAmount == nil {
			vs = append(vs, Violation{Field: "taxAmount", Message: "Missing tax amount for subject operation"})
		}
		if b.TaxRate != nil && b.TaxAmount != nil {
			if v, ok := b.checkConsistency("taxAmount", *b.TaxRate, *b.TaxAmount, "Expected tax amount of %s, got %s"); !ok {
				vs = append(vs, v)
			}
		}
		return vs
	}
	if b.TaxRate != nil {
		vs = append(vs, Violation{Field: "taxRate", Message: "This type of operation cannot have a tax rate"})
	}
	if b.TaxAmount != nil {
		vs = append(vs, Violation{Field: "taxAmount", Message: "This type of operation cannot have a tax amount"})
	}
	return vs
}

// validateSurchargePair exige el par de recargo de equivalencia en el régimen
// que lo impone y lo prohíbe en el resto.
func (b BreakdownEntry) validateSurchargePair() []Violation {
	var vs []Violation
	if b.RegimeType == verifactu.RegimeC18 {
		if b.SurchargeRate == nil {
			vs = append(vs, Violation{Field: "surchargeRate", Message: "Missing surcharge rate for equivalence surcharge regime"})
		}
		if b.SurchargeAmount == nil {
			vs = append(vs, Violation{Field: "surchargeAmount", Message: "Missing surcharge amount for equivalence surcharge regime"})
		}
		if b.SurchargeRate != nil && b.SurchargeAmount != nil {
			if v, ok := b.checkConsistency("surchargeAmount", *b.SurchargeRate, *b.SurchargeAmount, "Expected surcharge amount of %s, got %s"); !ok {
				vs = append(vs, v)
			}
		}
		return vs
	}
	if b.SurchargeRate != nil {
		vs = append(vs, Violation{Field: "surchargeRate", Message: "This regime type cannot have a surcharge rate"})
	}
	if b.SurchargeAmount != nil {
		vs = append(vs, Violation{Field: "surchargeAmount", Message: "This regime type cannot have a surcharge amount"})
	}
	return vs
}

// checkConsistency comprueba que cuota ≈ base × tipo / 100 dentro de la
// tolerancia admitida. Retorna ok=true si el par es coherente o si alguno de
// los importes no es parseable (en ese caso ya hay violación de formato).
func (b BreakdownEntry) checkConsistency(field, rate, amount, format string) (Violation, bool) {
	base, err := decimal.NewFromString(b.BaseAmount)
	if err != nil {
		return Violation{}, true
	}
	rateDec, err := decimal.NewFromString(rate)
	if err != nil {
		return Violation{}, true
	}
	expected := base.Mul(rateDec).Div(decimal.NewFromInt(100))
	if matchesWithTolerance(amount, expected) {
		return Violation{}, true
	}
	return Violation{Field: field, Message: fmt.Sprintf(format, expected.StringFixed(2), amount)}, false
}
