package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/facturable/verifactu-sif/internal/application/invoicing"
	"github.com/facturable/verifactu-sif/internal/domain"
	"github.com/facturable/verifactu-sif/internal/domain/record"
)

var _ invoicing.ChainRepository = (*ChainRepo)(nil)

// ChainRepo implementación de invoicing.ChainRepository (usable con pool o tx).
//
// Esquema:
//
//	chain_heads(issuer_id PK, invoice_number, issue_date, hash, updated_at)
//	invoicing_records(id PK, issuer_id, invoice_number, issue_date, record_type,
//	    hash, previous_hash, hashed_at, xml, submission_status, aeat_csv,
//	    error_code, error_description, created_at,
//	    UNIQUE (issuer_id, invoice_number, issue_date, record_type))
type ChainRepo struct {
	q Querier
}

// NewChainRepository construye el adaptador. Pasar pool o tx (Querier).
func NewChainRepository(q Querier) *ChainRepo {
	return &ChainRepo{q: q}
}

// Head devuelve el último eslabón del emisor, o nil si aún no hay cadena.
func (r *ChainRepo) Head(ctx context.Context, issuerID string) (*invoicing.ChainLink, error) {
	query := `
		SELECT invoice_number, issue_date, hash
		FROM chain_heads WHERE issuer_id = $1`
	var invoiceNumber, hash string
	var issueDate time.Time
	err := r.q.QueryRow(ctx, query, issuerID).Scan(&invoiceNumber, &issueDate, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chain head: %w", err)
	}
	return &invoicing.ChainLink{
		InvoiceID: record.NewInvoiceIdentifier(issuerID, invoiceNumber, issueDate),
		Hash:      hash,
	}, nil
}

// Append persiste el registro y avanza el eslabón del emisor en la misma
// operación lógica: el caller debe envolverlo en la transacción del TxRunner.
func (r *ChainRepo) Append(ctx context.Context, entry *invoicing.ChainEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	insert := `
		INSERT INTO invoicing_records (id, issuer_id, invoice_number, issue_date, record_type,
			hash, previous_hash, hashed_at, xml, submission_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, insert,
		entry.ID, entry.IssuerID, entry.InvoiceID.InvoiceNumber, entry.InvoiceID.IssueDate,
		entry.RecordType, entry.Hash, nullIfBlank(entry.PreviousHash), entry.HashedAt,
		entry.XML, invoicing.SubmissionPending, entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, entry.InvoiceID)
		}
		return fmt.Errorf("insert invoicing record: %w", err)
	}

	upsert := `
		INSERT INTO chain_heads (issuer_id, invoice_number, issue_date, hash, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (issuer_id) DO UPDATE
		SET invoice_number = EXCLUDED.invoice_number,
		    issue_date     = EXCLUDED.issue_date,
		    hash           = EXCLUDED.hash,
		    updated_at     = EXCLUDED.updated_at`
	_, err = r.q.Exec(ctx, upsert,
		entry.IssuerID, entry.InvoiceID.InvoiceNumber, entry.InvoiceID.IssueDate,
		entry.Hash, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("advance chain head: %w", err)
	}
	return nil
}

// PendingSubmission devuelve los registros pendientes de remitir, en orden de
// encadenamiento (created_at).
func (r *ChainRepo) PendingSubmission(ctx context.Context, issuerID string, limit int) ([]invoicing.ChainEntry, error) {
	query := selectEntries + `
		WHERE issuer_id = $1 AND submission_status = $2
		ORDER BY created_at ASC
		LIMIT $3`
	rows, err := r.q.Query(ctx, query, issuerID, invoicing.SubmissionPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// UpdateSubmission registra el veredicto de la AEAT para un registro.
func (r *ChainRepo) UpdateSubmission(ctx context.Context, entryID uuid.UUID, status, csv, errorCode, errorDescription string) error {
	query := `
		UPDATE invoicing_records
		SET submission_status = $2,
		    aeat_csv          = COALESCE($3, aeat_csv),
		    error_code        = $4,
		    error_description = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, entryID, status,
		nullIfBlank(csv), nullIfBlank(errorCode), nullIfBlank(errorDescription))
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: registro %s", domain.ErrNotFound, entryID)
	}
	return nil
}

// Entries lista los registros de un emisor, los más recientes primero.
func (r *ChainRepo) Entries(ctx context.Context, issuerID string, limit int) ([]invoicing.ChainEntry, error) {
	query := selectEntries + `
		WHERE issuer_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, issuerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

const selectEntries = `
		SELECT id, issuer_id, invoice_number, issue_date, record_type,
		       hash, previous_hash, hashed_at, xml, submission_status,
		       aeat_csv, error_code, error_description, created_at
		FROM invoicing_records`

func scanEntries(rows pgx.Rows) ([]invoicing.ChainEntry, error) {
	var entries []invoicing.ChainEntry
	for rows.Next() {
		var e invoicing.ChainEntry
		var invoiceNumber string
		var issueDate time.Time
		var previousHash, csv, errorCode, errorDescription *string
		if err := rows.Scan(
			&e.ID, &e.IssuerID, &invoiceNumber, &issueDate, &e.RecordType,
			&e.Hash, &previousHash, &e.HashedAt, &e.XML, &e.SubmissionStatus,
			&csv, &errorCode, &errorDescription, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		e.InvoiceID = record.NewInvoiceIdentifier(e.IssuerID, invoiceNumber, issueDate)
		e.PreviousHash = deref(previousHash)
		e.CSV = deref(csv)
		e.ErrorCode = deref(errorCode)
		e.ErrorDescription = deref(errorDescription)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return entries, nil
}

func nullIfBlank(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
