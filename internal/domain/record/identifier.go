package record

import "time"

// Formatos de fecha y hora exigidos por la AEAT en huellas y XML.
const (
	// DateLayout es el formato dd-mm-aaaa de las fechas de expedición.
	DateLayout = "02-01-2006"
	// TimestampLayout es ISO-8601 con desplazamiento numérico, el formato de
	// FechaHoraHusoGenRegistro.
	TimestampLayout = "2006-01-02T15:04:05-07:00"
)

// InvoiceIdentifier identifica de forma única una factura emitida.
//
// Campos IDFactura/IDEmisorFactura, NumSerieFactura y FechaExpedicionFactura
// (con sufijo "Anulada" en registros de anulación).
type InvoiceIdentifier struct {
	// NIF del obligado a expedir la factura (9 caracteres).
	IssuerID string
	// Nº serie + nº factura (máximo 60 caracteres).
	InvoiceNumber string
	// Fecha de expedición. La parte horaria se ignora.
	IssueDate time.Time
}

// NewInvoiceIdentifier construye un identificador normalizando la fecha a
// medianoche.
func NewInvoiceIdentifier(issuerID, invoiceNumber string, issueDate time.Time) InvoiceIdentifier {
	return InvoiceIdentifier{
		IssuerID:      issuerID,
		InvoiceNumber: invoiceNumber,
		IssueDate:     truncateToDay(issueDate),
	}
}

// Equal compara dos identificadores. Las fechas se comparan a precisión de
// día, descartando hora y huso horario.
func (id InvoiceIdentifier) Equal(other InvoiceIdentifier) bool {
	return id.IssuerID == other.IssuerID &&
		id.InvoiceNumber == other.InvoiceNumber &&
		id.IssueDate.Format("2006-01-02") == other.IssueDate.Format("2006-01-02")
}

// Validate aplica las reglas de campo del identificador.
func (id InvoiceIdentifier) Validate() []Violation {
	var vs []Violation
	checkExactLen(&vs, "issuerId", id.IssuerID, 9)
	checkRequired(&vs, "invoiceNumber", id.InvoiceNumber)
	checkMaxLen(&vs, "invoiceNumber", id.InvoiceNumber, 60)
	if id.IssueDate.IsZero() {
		vs = append(vs, Violation{Field: "issueDate", Message: "This value should not be blank"})
	}
	return vs
}

// truncateToDay descarta la parte horaria de una fecha conservando su zona.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
