package dto

import (
	"fmt"
	"time"

	"github.com/facturable/verifactu-sif/internal/application/invoicing"
	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

// Las fechas viajan en la API con el mismo formato normativo que los
// registros: dd-mm-aaaa.

// InvoiceRef identifica una factura en peticiones y respuestas.
type InvoiceRef struct {
	IssuerID      string `json:"issuerId"`
	InvoiceNumber string `json:"invoiceNumber"`
	IssueDate     string `json:"issueDate"`
}

func (r InvoiceRef) toIdentifier() (record.InvoiceIdentifier, error) {
	issueDate, err := time.Parse(record.DateLayout, r.IssueDate)
	if err != nil {
		return record.InvoiceIdentifier{}, fmt.Errorf("fecha %q inválida, se espera dd-mm-aaaa", r.IssueDate)
	}
	return record.NewInvoiceIdentifier(r.IssuerID, r.InvoiceNumber, issueDate), nil
}

// NewInvoiceRef arma la referencia desde un identificador de dominio.
func NewInvoiceRef(id record.InvoiceIdentifier) InvoiceRef {
	return InvoiceRef{
		IssuerID:      id.IssuerID,
		InvoiceNumber: id.InvoiceNumber,
		IssueDate:     id.IssueDate.Format(record.DateLayout),
	}
}

// RecipientRequest un destinatario: NIF español o identificador extranjero.
type RecipientRequest struct {
	Name    string `json:"name"`
	NIF     string `json:"nif,omitempty"`
	Country string `json:"country,omitempty"`
	IDType  string `json:"idType,omitempty"`
	IDValue string `json:"idValue,omitempty"`
}

func (r RecipientRequest) toRecipient() record.Recipient {
	if r.NIF != "" {
		return record.FiscalIdentifier{Name: r.Name, NIF: r.NIF}
	}
	return record.ForeignFiscalIdentifier{
		Name:    r.Name,
		Country: r.Country,
		Type:    verifactu.ForeignIdType(r.IDType),
		Value:   r.IDValue,
	}
}

// BreakdownEntryRequest una línea de desglose fiscal.
type BreakdownEntryRequest struct {
	TaxType          string  `json:"taxType"`
	RegimeType       string  `json:"regimeType"`
	OperationType    string  `json:"operationType"`
	BaseAmount       string  `json:"baseAmount"`
	TaxRate          *string `json:"taxRate,omitempty"`
	TaxAmount        *string `json:"taxAmount,omitempty"`
	SurchargeRate    *string `json:"surchargeRate,omitempty"`
	SurchargeAmount  *string `json:"surchargeAmount,omitempty"`
	ExemptReasonCode *string `json:"exemptReasonCode,omitempty"`
	ExemptReason     *string `json:"exemptReason,omitempty"`
}

func (r BreakdownEntryRequest) toEntry() record.BreakdownEntry {
	return record.BreakdownEntry{
		TaxType:          verifactu.TaxType(r.TaxType),
		RegimeType:       verifactu.RegimeType(r.RegimeType),
		OperationType:    verifactu.OperationType(r.OperationType),
		BaseAmount:       r.BaseAmount,
		TaxRate:          r.TaxRate,
		TaxAmount:        r.TaxAmount,
		SurchargeRate:    r.SurchargeRate,
		SurchargeAmount:  r.SurchargeAmount,
		ExemptReasonCode: r.ExemptReasonCode,
		ExemptReason:     r.ExemptReason,
	}
}

// RegisterInvoiceRequest petición de alta de factura. Los campos de cadena y
// huella no se aceptan: los calcula el servicio.
type RegisterInvoiceRequest struct {
	InvoiceRef
	IssuerName          string                  `json:"issuerName"`
	InvoiceType         string                  `json:"invoiceType"`
	Description         string                  `json:"description"`
	OperationDate       string                  `json:"operationDate,omitempty"`
	IsCorrection        bool                    `json:"isCorrection,omitempty"`
	PriorRejection      string                  `json:"priorRejection,omitempty"`
	CorrectiveType      string                  `json:"correctiveType,omitempty"`
	CorrectedInvoices   []InvoiceRef            `json:"correctedInvoices,omitempty"`
	ReplacedInvoices    []InvoiceRef            `json:"replacedInvoices,omitempty"`
	CorrectedBaseAmount *string                 `json:"correctedBaseAmount,omitempty"`
	CorrectedTaxAmount  *string                 `json:"correctedTaxAmount,omitempty"`
	Recipients          []RecipientRequest      `json:"recipients,omitempty"`
	Breakdown           []BreakdownEntryRequest `json:"breakdown"`
	TotalTaxAmount      string                  `json:"totalTaxAmount"`
	TotalAmount         string                  `json:"totalAmount"`
}

// ToRecord convierte la petición en un registro de alta sin encadenar.
func (r RegisterInvoiceRequest) ToRecord() (*record.RegistrationRecord, error) {
	invoiceID, err := r.toIdentifier()
	if err != nil {
		return nil, err
	}

	rec := &record.RegistrationRecord{
		RecordBase:          record.RecordBase{InvoiceID: invoiceID},
		IsCorrection:        r.IsCorrection,
		PriorRejection:      verifactu.PriorRejection(r.PriorRejection),
		IssuerName:          r.IssuerName,
		InvoiceType:         verifactu.InvoiceType(r.InvoiceType),
		Description:         r.Description,
		CorrectiveType:      verifactu.CorrectiveType(r.CorrectiveType),
		CorrectedBaseAmount: r.CorrectedBaseAmount,
		CorrectedTaxAmount:  r.CorrectedTaxAmount,
		TotalTaxAmount:      r.TotalTaxAmount,
		TotalAmount:         r.TotalAmount,
	}

	if r.OperationDate != "" {
		operationDate, err := time.Parse(record.DateLayout, r.OperationDate)
		if err != nil {
			return nil, fmt.Errorf("fecha de operación %q inválida, se espera dd-mm-aaaa", r.OperationDate)
		}
		rec.OperationDate = &operationDate
	}
	for _, corrected := range r.CorrectedInvoices {
		id, err := corrected.toIdentifier()
		if err != nil {
			return nil, err
		}
		rec.CorrectedInvoices = append(rec.CorrectedInvoices, id)
	}
	for _, replaced := range r.ReplacedInvoices {
		id, err := replaced.toIdentifier()
		if err != nil {
			return nil, err
		}
		rec.ReplacedInvoices = append(rec.ReplacedInvoices, id)
	}
	for _, recipient := range r.Recipients {
		rec.Recipients = append(rec.Recipients, recipient.toRecipient())
	}
	for _, entry := range r.Breakdown {
		rec.Breakdown = append(rec.Breakdown, entry.toEntry())
	}

	return rec, nil
}

// CancelInvoiceRequest petición de anulación de factura.
type CancelInvoiceRequest struct {
	InvoiceRef
	WithoutPriorRecord bool   `json:"withoutPriorRecord,omitempty"`
	PriorRejection     string `json:"priorRejection,omitempty"`
}

// ToRecord convierte la petición en un registro de anulación sin encadenar.
func (r CancelInvoiceRequest) ToRecord() (*record.CancellationRecord, error) {
	invoiceID, err := r.toIdentifier()
	if err != nil {
		return nil, err
	}
	return &record.CancellationRecord{
		RecordBase:         record.RecordBase{InvoiceID: invoiceID},
		WithoutPriorRecord: r.WithoutPriorRecord,
		PriorRejection:     verifactu.PriorRejection(r.PriorRejection),
	}, nil
}

// RecordResponse un registro de facturación persistido.
type RecordResponse struct {
	ID               string     `json:"id"`
	Invoice          InvoiceRef `json:"invoice"`
	RecordType       string     `json:"recordType"`
	Hash             string     `json:"hash"`
	PreviousHash     string     `json:"previousHash,omitempty"`
	HashedAt         string     `json:"hashedAt"`
	SubmissionStatus string     `json:"submissionStatus"`
	CSV              string     `json:"csv,omitempty"`
	ErrorCode        string     `json:"errorCode,omitempty"`
	ErrorDescription string     `json:"errorDescription,omitempty"`
	QRURL            string     `json:"qrUrl,omitempty"`
}

// NewRecordResponse arma la respuesta desde un registro persistido.
func NewRecordResponse(entry *invoicing.ChainEntry, qrURL string) RecordResponse {
	return RecordResponse{
		ID:               entry.ID.String(),
		Invoice:          NewInvoiceRef(entry.InvoiceID),
		RecordType:       entry.RecordType,
		Hash:             entry.Hash,
		PreviousHash:     entry.PreviousHash,
		HashedAt:         entry.HashedAt.Format(record.TimestampLayout),
		SubmissionStatus: entry.SubmissionStatus,
		CSV:              entry.CSV,
		ErrorCode:        entry.ErrorCode,
		ErrorDescription: entry.ErrorDescription,
		QRURL:            qrURL,
	}
}

// ChainHeadResponse el último eslabón de la cadena de un emisor.
type ChainHeadResponse struct {
	Invoice InvoiceRef `json:"invoice"`
	Hash    string     `json:"hash"`
}

// SubmissionItemResponse veredicto de la AEAT para una línea.
type SubmissionItemResponse struct {
	Invoice          InvoiceRef `json:"invoice"`
	RecordType       string     `json:"recordType"`
	Status           string     `json:"status"`
	ErrorCode        string     `json:"errorCode,omitempty"`
	ErrorDescription string     `json:"errorDescription,omitempty"`
}

// SubmissionResponse resultado de una remisión a la AEAT.
type SubmissionResponse struct {
	CSV         string                   `json:"csv,omitempty"`
	Status      string                   `json:"status"`
	SubmittedAt string                   `json:"submittedAt,omitempty"`
	WaitSeconds int                      `json:"waitSeconds"`
	Items       []SubmissionItemResponse `json:"items"`
}
