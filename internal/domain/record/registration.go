package record

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

// RegistrationRecord es el registro de alta de una factura (RegistroAlta).
type RegistrationRecord struct {
	RecordBase

	// Indicador de subsanación de un registro de alta previamente generado
	// (Subsanacion).
	IsCorrection bool
	// Indicador de rechazo previo (RechazoPrevio). Solo puede declararse en
	// subsanaciones; "X" significa que el registro rechazado nunca llegó a
	// remitirse a la AEAT.
	PriorRejection verifactu.PriorRejection
	// Nombre-razón social del obligado a expedir la factura
	// (NombreRazonEmisor).
	IssuerName string
	// Tipo de factura (TipoFactura).
	InvoiceType verifactu.InvoiceType
	// Fecha en la que se realiza la operación (FechaOperacion). La parte
	// horaria se ignora.
	OperationDate *time.Time
	// Descripción del objeto de la factura (DescripcionOperacion).
	Description string
	// Destinatarios de la factura (Destinatarios).
	Recipients []Recipient
	// Modalidad de factura rectificativa (TipoRectificativa), vacía si la
	// factura no es rectificativa.
	CorrectiveType verifactu.CorrectiveType
	// Facturas rectificadas (FacturasRectificadas).
	CorrectedInvoices []InvoiceIdentifier
	// Base imponible rectificada, solo en rectificativas por sustitución
	// (ImporteRectificacion/BaseRectificada).
	CorrectedBaseAmount *string
	// Cuota rectificada, solo en rectificativas por sustitución
	// (ImporteRectificacion/CuotaRectificada).
	CorrectedTaxAmount *string
	// Facturas sustituidas (FacturasSustituidas).
	ReplacedInvoices []InvoiceIdentifier
	// Desglose de la factura, de 1 a 12 líneas (Desglose).
	Breakdown []BreakdownEntry
	// Importe total de la cuota: cuotas repercutidas más recargos de
	// equivalencia (CuotaTotal).
	TotalTaxAmount string
	// Importe total de la factura (ImporteTotal).
	TotalAmount string
}

// Base implementa Record.
func (r *RegistrationRecord) Base() *RecordBase { return &r.RecordBase }

// CalculateHash calcula la huella del registro de alta.
//
// La carga canónica incluye, en este orden: emisor, número de serie, fecha de
// expedición, tipo de factura, cuota total, importe total, huella del
// registro anterior (vacía en el primero de la cadena) y marca temporal de
// generación.
func (r *RegistrationRecord) CalculateHash() (string, error) {
	switch {
	case r.InvoiceID.IssuerID == "":
		return "", fieldError("invoiceId.issuerId")
	case r.InvoiceID.InvoiceNumber == "":
		return "", fieldError("invoiceId.invoiceNumber")
	case r.InvoiceID.IssueDate.IsZero():
		return "", fieldError("invoiceId.issueDate")
	case r.InvoiceType == "":
		return "", fieldError("invoiceType")
	case r.TotalTaxAmount == "":
		return "", fieldError("totalTaxAmount")
	case r.TotalAmount == "":
		return "", fieldError("totalAmount")
	case r.HashedAt.IsZero():
		return "", fieldError("hashedAt")
	}
	return hashPayload(
		[2]string{"IDEmisorFactura", r.InvoiceID.IssuerID},
		[2]string{"NumSerieFactura", r.InvoiceID.InvoiceNumber},
		[2]string{"FechaExpedicionFactura", r.InvoiceID.IssueDate.Format(DateLayout)},
		[2]string{"TipoFactura", string(r.InvoiceType)},
		[2]string{"CuotaTotal", r.TotalTaxAmount},
		[2]string{"ImporteTotal", r.TotalAmount},
		[2]string{"Huella", r.PreviousHash},
		[2]string{"FechaHoraHusoGenRegistro", r.HashedAt.Format(TimestampLayout)},
	), nil
}

// Validate evalúa todas las reglas del registro de alta y retorna la lista
// completa de violaciones.
func (r *RegistrationRecord) Validate() []Violation {
	vs := r.validateBase()

	// Reglas de campo
	checkRequired(&vs, "issuerName", r.IssuerName)
	checkMaxLen(&vs, "issuerName", r.IssuerName, 120)
	if !r.InvoiceType.Valid() {
		vs = append(vs, Violation{Field: "invoiceType", Message: "This value is not a valid invoice type"})
	}
	checkRequired(&vs, "description", r.Description)
	checkMaxLen(&vs, "description", r.Description, 500)
	if !r.PriorRejection.Valid() {
		vs = append(vs, Violation{Field: "isPriorRejection", Message: "This value is not a valid prior rejection indicator"})
	}
	if r.CorrectiveType != "" && !r.CorrectiveType.Valid() {
		vs = append(vs, Violation{Field: "correctiveType", Message: "This value is not a valid corrective type"})
	}
	if r.CorrectedBaseAmount != nil {
		checkAmount(&vs, "correctedBaseAmount", *r.CorrectedBaseAmount)
	}
	if r.CorrectedTaxAmount != nil {
		checkAmount(&vs, "correctedTaxAmount", *r.CorrectedTaxAmount)
	}
	if len(r.Recipients) > 1000 {
		vs = append(vs, Violation{Field: "recipients", Message: "This collection should contain 1000 elements or less"})
	}
	if len(r.Breakdown) < 1 {
		vs = append(vs, Violation{Field: "breakdown", Message: "This collection should contain 1 element or more"})
	} else if len(r.Breakdown) > 12 {
		vs = append(vs, Violation{Field: "breakdown", Message: "This collection should contain 12 elements or less"})
	}
	checkRequired(&vs, "totalTaxAmount", r.TotalTaxAmount)
	if r.TotalTaxAmount != "" {
		checkAmount(&vs, "totalTaxAmount", r.TotalTaxAmount)
	}
	checkRequired(&vs, "totalAmount", r.TotalAmount)
	if r.TotalAmount != "" {
		checkAmount(&vs, "totalAmount", r.TotalAmount)
	}

	// Entidades anidadas
	for i, recipient := range r.Recipients {
		vs = append(vs, prefix(fmt.Sprintf("recipients[%d]", i), recipient.Validate())...)
	}
	for i, entry := range r.Breakdown {
		vs = append(vs, prefix(fmt.Sprintf("breakdown[%d]", i), entry.Validate())...)
	}
	for i, corrected := range r.CorrectedInvoices {
		vs = append(vs, prefix(fmt.Sprintf("correctedInvoices[%d]", i), corrected.Validate())...)
	}
	for i, replaced := range r.ReplacedInvoices {
		vs = append(vs, prefix(fmt.Sprintf("replacedInvoices[%d]", i), replaced.Validate())...)
	}

	// Reglas cruzadas
	vs = append(vs, validateHash(r)...)
	vs = append(vs, r.validatePriorRejection()...)
	vs = append(vs, r.validateTotals()...)
	vs = append(vs, r.validateRecipients()...)
	vs = append(vs, r.validateCorrectiveDetails()...)
	vs = append(vs, r.validateReplacedInvoices()...)
	return vs
}

// validatePriorRejection solo admite rechazo previo en subsanaciones.
func (r *RegistrationRecord) validatePriorRejection() []Violation {
	if r.PriorRejection.Set() && !r.IsCorrection {
		return []Violation{{Field: "isPriorRejection", Message: "Record cannot be a prior rejection if it is not a correction"}}
	}
	return nil
}

// validateTotals comprueba la coherencia de los totales declarados con el
// desglose: la cuota total debe coincidir exactamente tras formatear a 2
// decimales y el importe total admite la tolerancia de redondeo.
func (r *RegistrationRecord) validateTotals() []Violation {
	if r.TotalTaxAmount == "" || r.TotalAmount == "" {
		return nil
	}

	baseSum := decimal.Zero
	taxSum := decimal.Zero
	for _, entry := range r.Breakdown {
		base, err := decimal.NewFromString(entry.BaseAmount)
		if err != nil {
			return nil
		}
		if entry.TaxAmount == nil {
			return nil
		}
		tax, err := decimal.NewFromString(*entry.TaxAmount)
		if err != nil {
			return nil
		}
		baseSum = baseSum.Add(base)
		taxSum = taxSum.Add(tax)
		if entry.SurchargeAmount != nil {
			surcharge, err := decimal.NewFromString(*entry.SurchargeAmount)
			if err != nil {
				return nil
			}
			taxSum = taxSum.Add(surcharge)
		}
	}

	var vs []Violation
	expectedTotalTax := taxSum.StringFixed(2)
	if r.TotalTaxAmount != expectedTotalTax {
		vs = append(vs, Violation{
			Field:   "totalTaxAmount",
			Message: fmt.Sprintf("Expected total tax amount of %s, got %s", expectedTotalTax, r.TotalTaxAmount),
		})
	}

	bestTotal := baseSum.Add(taxSum).Round(2)
	if !matchesWithTolerance(r.TotalAmount, bestTotal) {
		vs = append(vs, Violation{
			Field:   "totalAmount",
			Message: fmt.Sprintf("Expected total amount of %s, got %s", bestTotal.StringFixed(2), r.TotalAmount),
		})
	}
	return vs
}

// validateRecipients exige al menos un destinatario salvo en facturas
// simplificadas, que no pueden llevar ninguno.
func (r *RegistrationRecord) validateRecipients() []Violation {
	if r.InvoiceType == "" {
		return nil
	}
	if r.InvoiceType.IsSimplified() {
		if len(r.Recipients) > 0 {
			return []Violation{{Field: "recipients", Message: "This type of invoice cannot have recipients"}}
		}
		return nil
	}
	if len(r.Recipients) == 0 {
		return []Violation{{Field: "recipients", Message: "This type of invoice requires at least one recipient"}}
	}
	return nil
}

// validateCorrectiveDetails aplica las reglas de rectificativas: modalidad
// obligatoria en tipos R, importes rectificados solo por sustitución y nada
// de metadatos rectificativos en el resto de tipos.
func (r *RegistrationRecord) validateCorrectiveDetails() []Violation {
	if r.InvoiceType == "" {
		return nil
	}
	var vs []Violation
	isCorrective := r.InvoiceType.IsCorrective()

	if isCorrective && r.CorrectiveType == "" {
		vs = append(vs, Violation{Field: "correctiveType", Message: "Missing type for corrective invoice"})
	} else if !isCorrective && r.CorrectiveType != "" {
		vs = append(vs, Violation{Field: "correctiveType", Message: "This type of invoice cannot have a corrective type"})
	}

	if !isCorrective && len(r.CorrectedInvoices) > 0 {
		vs = append(vs, Violation{Field: "correctedInvoices", Message: "This type of invoice cannot have corrected invoices"})
	}

	if r.CorrectiveType == verifactu.CorrectiveTypeSubstitution {
		if r.CorrectedBaseAmount == nil {
			vs = append(vs, Violation{Field: "correctedBaseAmount", Message: "Missing corrected base amount for corrective invoice by substitution"})
		}
		if r.CorrectedTaxAmount == nil {
			vs = append(vs, Violation{Field: "correctedTaxAmount", Message: "Missing corrected tax amount for corrective invoice by substitution"})
		}
	} else {
		if r.CorrectedBaseAmount != nil {
			vs = append(vs, Violation{Field: "correctedBaseAmount", Message: "This invoice cannot have a corrected base amount"})
		}
		if r.CorrectedTaxAmount != nil {
			vs = append(vs, Violation{Field: "correctedTaxAmount", Message: "This invoice cannot have a corrected tax amount"})
		}
	}
	return vs
}

// validateReplacedInvoices solo permite facturas sustituidas en el tipo F3.
func (r *RegistrationRecord) validateReplacedInvoices() []Violation {
	if r.InvoiceType == "" {
		return nil
	}
	if r.InvoiceType != verifactu.InvoiceTypeSubstitute && len(r.ReplacedInvoices) > 0 {
		return []Violation{{Field: "replacedInvoices", Message: "This type of invoice cannot have replaced invoices"}}
	}
	return nil
}
