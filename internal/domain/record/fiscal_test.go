package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

// TestForeignFiscalIdentifier_NifIva valida que el NIF-IVA debe empezar por
// el código de país declarado.
func TestForeignFiscalIdentifier_NifIva(t *testing.T) {
	id := record.ForeignFiscalIdentifier{
		Name:    "Test Company Name",
		Country: "FR",
		Type:    verifactu.ForeignIdTypeVAT,
		Value:   "FR12345678901",
	}
	assert.Empty(t, id.Validate())

	// País que no coincide con el prefijo del NIF-IVA
	id.Country = "PT"
	assert.Contains(t, messages(id.Validate()), `VAT number must start with "PT", found "FR"`)

	// La regla solo aplica al tipo NIF-IVA
	id.Type = verifactu.ForeignIdTypeNationalId
	assert.Empty(t, id.Validate())
}

// TestForeignFiscalIdentifier_TiposParaEspania valida las reglas cruzadas de
// país y tipo: "ES" solo admite pasaporte o no censado, y el no censado exige
// "ES".
func TestForeignFiscalIdentifier_TiposParaEspania(t *testing.T) {
	id := record.ForeignFiscalIdentifier{
		Name:    "Pepito Pérez Gómez",
		Country: "ES",
		Value:   "BC858683",
	}

	id.Type = verifactu.ForeignIdTypePassport
	assert.Empty(t, id.Validate())

	id.Value = "49339626A"
	id.Type = verifactu.ForeignIdTypeUnregistered
	assert.Empty(t, id.Validate())

	// "ES" con un tipo distinto de pasaporte o no censado. La violación se
	// atribuye al país, igual que su regla inversa.
	id.Type = verifactu.ForeignIdTypeResidence
	assert.Contains(t, messages(id.Validate()),
		`country: Type must be passport or unregistered if country code is "ES"`)

	// No censado con país distinto de "ES"
	id.Country = "PT"
	id.Type = verifactu.ForeignIdTypeUnregistered
	assert.Contains(t, messages(id.Validate()),
		`Country code must be "ES" if type is unregistered`)
}

// TestForeignFiscalIdentifier_PaisObligatorio verifica que el país solo puede
// omitirse con NIF-IVA.
func TestForeignFiscalIdentifier_PaisObligatorio(t *testing.T) {
	id := record.ForeignFiscalIdentifier{
		Name:  "Test Company Name",
		Type:  verifactu.ForeignIdTypePassport,
		Value: "BC858683",
	}
	assert.Contains(t, messages(id.Validate()),
		`Country code is mandatory when using an IDType different from "VAT"`)

	id.Type = verifactu.ForeignIdTypeVAT
	id.Value = "FR12345678901"
	assert.Empty(t, id.Validate())
}

func TestFiscalIdentifier_ReglasDeCampo(t *testing.T) {
	id := record.FiscalIdentifier{Name: "Antonio García Pérez", NIF: "00000000A"}
	assert.Empty(t, id.Validate())

	id.NIF = "123"
	assert.Contains(t, messages(id.Validate()), "nif: This value should have exactly 9 characters")

	id.NIF = "00000000A"
	id.Name = ""
	assert.Contains(t, messages(id.Validate()), "name: This value should not be blank")
}
