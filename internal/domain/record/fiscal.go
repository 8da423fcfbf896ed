package record

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

var countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Recipient es un destinatario de factura: un identificador fiscal español
// (NIF) o uno extranjero (IDOtro).
type Recipient interface {
	// RecipientName es el nombre-razón social del destinatario.
	RecipientName() string
	// Validate aplica las reglas de campo y cruzadas del destinatario.
	Validate() []Violation
}

// FiscalIdentifier identifica a una persona o entidad española por su NIF.
//
// Se usa en destinatarios, en el obligado de emisión de la cabecera y en el
// representante.
type FiscalIdentifier struct {
	// Nombre-razón social (máximo 120 caracteres).
	Name string
	// Número de identificación fiscal (9 caracteres).
	NIF string
}

// RecipientName implementa Recipient.
func (f FiscalIdentifier) RecipientName() string { return f.Name }

// Validate aplica las reglas de campo del identificador fiscal.
func (f FiscalIdentifier) Validate() []Violation {
	var vs []Violation
	checkRequired(&vs, "name", f.Name)
	checkMaxLen(&vs, "name", f.Name, 120)
	checkExactLen(&vs, "nif", f.NIF, 9)
	return vs
}

// ForeignFiscalIdentifier identifica a un destinatario sin NIF español
// mediante un documento de su país de residencia.
type ForeignFiscalIdentifier struct {
	// Nombre-razón social (máximo 120 caracteres).
	Name string
	// Código del país (ISO 3166-1 alpha-2). Obligatorio salvo para NIF-IVA.
	Country string
	// Clave del tipo de identificación en el país de residencia.
	Type verifactu.ForeignIdType
	// Número de identificación (máximo 20 caracteres).
	Value string
}

// RecipientName implementa Recipient.
func (f ForeignFiscalIdentifier) RecipientName() string { return f.Name }

// Validate aplica las reglas de campo y las reglas cruzadas país/tipo/valor.
func (f ForeignFiscalIdentifier) Validate() []Violation {
	var vs []Violation
	checkRequired(&vs, "name", f.Name)
	checkMaxLen(&vs, "name", f.Name, 120)
	if !f.Type.Valid() {
		vs = append(vs, Violation{Field: "type", Message: "This value is not a valid identification type"})
	}
	checkRequired(&vs, "value", f.Value)
	checkMaxLen(&vs, "value", f.Value, 20)
	if f.Country != "" && !countryPattern.MatchString(f.Country) {
		vs = append(vs, Violation{Field: "country", Message: "This value is not a valid country code"})
	}

	// CodigoPais es obligatorio para todo IDType distinto de NIF-IVA
	if f.Country == "" && f.Type != verifactu.ForeignIdTypeVAT {
		vs = append(vs, Violation{Field: "country", Message: `Country code is mandatory when using an IDType different from "VAT"`})
	}

	// CodigoPais solo puede ser ES para pasaportes y no censados
	if f.Country == "ES" && f.Type != verifactu.ForeignIdTypePassport && f.Type != verifactu.ForeignIdTypeUnregistered {
		vs = append(vs, Violation{Field: "country", Message: `Type must be passport or unregistered if country code is "ES"`})
	}

	// CodigoPais debe ser ES para no censados
	if f.Country != "" && f.Country != "ES" && f.Type == verifactu.ForeignIdTypeUnregistered {
		vs = append(vs, Violation{Field: "country", Message: `Country code must be "ES" if type is unregistered`})
	}

	// El NIF-IVA debe empezar por el código de país declarado
	if f.Type == verifactu.ForeignIdTypeVAT && f.Country != "" && !strings.HasPrefix(f.Value, f.Country) {
		found := f.Value
		if len(found) > 2 {
			found = found[:2]
		}
		vs = append(vs, Violation{Field: "value", Message: fmt.Sprintf("VAT number must start with %q, found %q", f.Country, found)})
	}

	return vs
}
