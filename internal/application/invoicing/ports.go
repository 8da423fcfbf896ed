package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/facturable/verifactu-sif/internal/domain/record"
)

// Estados de remisión de un registro persistido.
const (
	SubmissionPending            = "PENDIENTE"
	SubmissionAccepted           = "CORRECTO"
	SubmissionAcceptedWithErrors = "ACEPTADO_CON_ERRORES"
	SubmissionRejected           = "INCORRECTO"
)

// Tipos de registro persistido, con los nombres de operación de la AEAT.
const (
	EntryRegistration = "Alta"
	EntryCancellation = "Anulacion"
)

// ChainLink es el último eslabón de la cadena de un emisor: lo mínimo que el
// siguiente registro necesita para encadenar.
type ChainLink struct {
	InvoiceID record.InvoiceIdentifier
	Hash      string
}

// ChainEntry es un registro de facturación persistido, con su XML exportado y
// el estado de remisión a la AEAT.
type ChainEntry struct {
	ID               uuid.UUID
	IssuerID         string
	InvoiceID        record.InvoiceIdentifier
	RecordType       string
	Hash             string
	PreviousHash     string
	HashedAt         time.Time
	XML              string
	SubmissionStatus string
	CSV              string
	ErrorCode        string
	ErrorDescription string
	CreatedAt        time.Time
}

// ChainRepository define el puerto de persistencia de la cadena. La
// implementación concreta vive en infrastructure/postgres.
type ChainRepository interface {
	// Head devuelve el último eslabón del emisor, o nil si aún no hay cadena.
	Head(ctx context.Context, issuerID string) (*ChainLink, error)
	// Append persiste un registro nuevo y avanza el eslabón del emisor.
	// Devuelve domain.ErrDuplicateRecord si la factura ya tiene un registro
	// del mismo tipo.
	Append(ctx context.Context, entry *ChainEntry) error
	// PendingSubmission devuelve los registros aún no remitidos, en orden de
	// encadenamiento.
	PendingSubmission(ctx context.Context, issuerID string, limit int) ([]ChainEntry, error)
	// UpdateSubmission registra el resultado que la AEAT devolvió para un
	// registro.
	UpdateSubmission(ctx context.Context, entryID uuid.UUID, status, csv, errorCode, errorDescription string) error
	// Entries lista los registros de un emisor, los más recientes primero.
	Entries(ctx context.Context, issuerID string, limit int) ([]ChainEntry, error)
}

// ChainTxRunner ejecuta fn dentro de una transacción que serializa los
// appends de un mismo emisor: dos registros del mismo obligado nunca se
// encadenan en paralelo.
type ChainTxRunner interface {
	Run(ctx context.Context, issuerID string, fn func(repo ChainRepository) error) error
}
