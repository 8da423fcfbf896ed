package record

import "github.com/facturable/verifactu-sif/pkg/verifactu"

// CancellationRecord es el registro de anulación de una factura
// (RegistroAnulacion).
type CancellationRecord struct {
	RecordBase

	// Indicador de anulación de un registro que no existe ni en la AEAT ni
	// en el SIF (SinRegistroPrevio).
	WithoutPriorRecord bool
	// Indicador de rechazo previo (RechazoPrevio).
	PriorRejection verifactu.PriorRejection
}

// Base implementa Record.
func (r *CancellationRecord) Base() *RecordBase { return &r.RecordBase }

// CalculateHash calcula la huella del registro de anulación. La carga
// canónica usa las claves con sufijo "Anulada" y no incluye tipo de factura
// ni totales.
func (r *CancellationRecord) CalculateHash() (string, error) {
	switch {
	case r.InvoiceID.IssuerID == "":
		return "", fieldError("invoiceId.issuerId")
	case r.InvoiceID.InvoiceNumber == "":
		return "", fieldError("invoiceId.invoiceNumber")
	case r.InvoiceID.IssueDate.IsZero():
		return "", fieldError("invoiceId.issueDate")
	case r.HashedAt.IsZero():
		return "", fieldError("hashedAt")
	}
	return hashPayload(
		[2]string{"IDEmisorFacturaAnulada", r.InvoiceID.IssuerID},
		[2]string{"NumSerieFacturaAnulada", r.InvoiceID.InvoiceNumber},
		[2]string{"FechaExpedicionFacturaAnulada", r.InvoiceID.IssueDate.Format(DateLayout)},
		[2]string{"Huella", r.PreviousHash},
		[2]string{"FechaHoraHusoGenRegistro", r.HashedAt.Format(TimestampLayout)},
	), nil
}

// Validate evalúa todas las reglas del registro de anulación.
func (r *CancellationRecord) Validate() []Violation {
	vs := r.validateBase()
	if !r.PriorRejection.Valid() {
		vs = append(vs, Violation{Field: "isPriorRejection", Message: "This value is not a valid prior rejection indicator"})
	}
	vs = append(vs, validateHash(r)...)
	vs = append(vs, r.validateEnforcePreviousInvoice()...)
	return vs
}

// validateEnforcePreviousInvoice exige eslabón anterior en toda anulación:
// no se puede anular la primera factura de una cadena que no existe.
func (r *CancellationRecord) validateEnforcePreviousInvoice() []Violation {
	var vs []Violation
	if r.PreviousInvoiceID == nil {
		vs = append(vs, Violation{Field: "previousInvoiceId", Message: "Previous invoice ID is required for all cancellation records"})
	}
	if r.PreviousHash == "" {
		vs = append(vs, Violation{Field: "previousHash", Message: "Previous hash is required for all cancellation records"})
	}
	return vs
}
