package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

// TestBreakdownEntry_ToleranciaCuota valida la ley de tolerancia: para base
// 11.22 y tipo 21.00 la cuota exacta es 2.36; se admiten 2.35, 2.36 y 2.37 y
// se rechaza cualquier valor fuera de ±0.02 reportando el valor exacto.
func TestBreakdownEntry_ToleranciaCuota(t *testing.T) {
	entry := record.BreakdownEntry{
		TaxType:       verifactu.TaxTypeIVA,
		RegimeType:    verifactu.RegimeC01,
		OperationType: verifactu.OperationSubject,
		BaseAmount:    "11.22",
		TaxRate:       ptr("21.00"),
		TaxAmount:     ptr("2.36"),
	}
	assert.Empty(t, entry.Validate())

	// Desviaciones admitidas
	for _, amount := range []string{"2.35", "2.36", "2.37"} {
		entry.TaxAmount = ptr(amount)
		assert.Empty(t, entry.Validate(), "la cuota %s está dentro de la tolerancia", amount)
	}

	// Fuera de tolerancia: el mensaje reporta el valor exacto esperado
	entry.TaxAmount = ptr("99.99")
	assert.Contains(t, messages(entry.Validate()), "Expected tax amount of 2.36, got 99.99")
}

// TestBreakdownEntry_ParSujetoObligatorio valida la ley de requisito
// condicional: una operación sujeta sin tipo ni cuota produce una violación
// por cada campo que falta.
func TestBreakdownEntry_ParSujetoObligatorio(t *testing.T) {
	entry := record.BreakdownEntry{
		TaxType:       verifactu.TaxTypeIVA,
		RegimeType:    verifactu.RegimeC01,
		OperationType: verifactu.OperationSubject,
		BaseAmount:    "11.22",
	}

	got := messages(entry.Validate())
	assert.Contains(t, got, "Missing tax rate for subject operation")
	assert.Contains(t, got, "Missing tax amount for subject operation")
}

// TestBreakdownEntry_ParProhibidoEnExentas verifica que una operación exenta
// con tipo y cuota produce una violación por cada campo de más.
func TestBreakdownEntry_ParProhibidoEnExentas(t *testing.T) {
	entry := record.BreakdownEntry{
		TaxType:       verifactu.TaxTypeIVA,
		RegimeType:    verifactu.RegimeC01,
		OperationType: verifactu.OperationExemptArt20,
		BaseAmount:    "11.22",
		TaxRate:       ptr("21.00"),
		TaxAmount:     ptr("2.36"),
	}

	got := messages(entry.Validate())
	assert.Contains(t, got, "This type of operation cannot have a tax rate")
	assert.Contains(t, got, "This type of operation cannot have a tax amount")

	// Sin el par, la exenta es válida
	entry.TaxRate = nil
	entry.TaxAmount = nil
	assert.Empty(t, entry.Validate())
}

// TestBreakdownEntry_NoSujetaSinPar verifica el mismo comportamiento para
// operaciones no sujetas.
func TestBreakdownEntry_NoSujetaSinPar(t *testing.T) {
	entry := record.BreakdownEntry{
		TaxType:       verifactu.TaxTypeIVA,
		RegimeType:    verifactu.RegimeC01,
		OperationType: verifactu.OperationNonSubject,
		BaseAmount:    "11.22",
	}
	assert.Empty(t, entry.Validate())

	entry.TaxAmount = ptr("2.36")
	assert.Contains(t, messages(entry.Validate()), "This type of operation cannot have a tax amount")
}

// TestBreakdownEntry_RecargoEquivalencia valida las reglas del régimen 18:
// exige el par de recargo, comprueba su coherencia con la misma tolerancia y
// lo prohíbe en el resto de regímenes.
func TestBreakdownEntry_RecargoEquivalencia(t *testing.T) {
	entry := record.BreakdownEntry{
		TaxType:       verifactu.TaxTypeIVA,
		RegimeType:    verifactu.RegimeC18,
		OperationType: verifactu.OperationSubject,
		BaseAmount:    "100.00",
		TaxRate:       ptr("21.00"),
		TaxAmount:     ptr("21.00"),
	}

	// Falta el par de recargo
	got := messages(entry.Validate())
	assert.Contains(t, got, "Missing surcharge rate for equivalence surcharge regime")
	assert.Contains(t, got, "Missing surcharge amount for equivalence surcharge regime")

	// Par de recargo coherente
	entry.SurchargeRate = ptr("5.20")
	entry.SurchargeAmount = ptr("5.20")
	assert.Empty(t, entry.Validate())

	// Recargo fuera de tolerancia
	entry.SurchargeAmount = ptr("9.99")
	assert.Contains(t, messages(entry.Validate()), "Expected surcharge amount of 5.20, got 9.99")

	// El par de recargo está prohibido fuera del régimen 18
	entry.RegimeType = verifactu.RegimeC01
	entry.SurchargeAmount = ptr("5.20")
	got = messages(entry.Validate())
	assert.Contains(t, got, "This regime type cannot have a surcharge rate")
	assert.Contains(t, got, "This regime type cannot have a surcharge amount")
}

// TestBreakdownEntry_FormatoImportes verifica los patrones normativos de
// importes y tipos.
func TestBreakdownEntry_FormatoImportes(t *testing.T) {
	entry := record.BreakdownEntry{
		TaxType:       verifactu.TaxTypeIVA,
		RegimeType:    verifactu.RegimeC01,
		OperationType: verifactu.OperationSubject,
		BaseAmount:    "10",
		TaxRate:       ptr("21"),
		TaxAmount:     ptr("2.1"),
	}

	got := messages(entry.Validate())
	assert.Contains(t, got, "baseAmount: This value is not a valid amount")
	assert.Contains(t, got, "taxRate: This value is not a valid rate")
	assert.Contains(t, got, "taxAmount: This value is not a valid amount")

	// Los importes negativos son válidos (rectificativas), los tipos no
	entry.BaseAmount = "-10.00"
	entry.TaxRate = ptr("21.00")
	entry.TaxAmount = ptr("-2.10")
	assert.Empty(t, entry.Validate())
}
