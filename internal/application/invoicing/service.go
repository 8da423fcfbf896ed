package invoicing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/facturable/verifactu-sif/internal/domain"
	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/internal/infrastructure/aeat"
	"github.com/facturable/verifactu-sif/pkg/logger"
)

// ErrNoPendingRecords indica que el emisor no tiene registros por remitir.
var ErrNoPendingRecords = errors.New("no hay registros pendientes de remisión")

// ThrottledError indica que aún no ha pasado el TiempoEsperaEnvio que la AEAT
// impuso en la remisión anterior. El caller decide cuándo reintentar; el
// servicio no reintenta por su cuenta.
type ThrottledError struct {
	RetryAt time.Time
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("remisión limitada por la AEAT, reintentar a partir de %s", e.RetryAt.Format(time.RFC3339))
}

// RegistrationResult es el resultado de dar de alta una factura: el registro
// ya encadenado y con huella, y la URL de cotejo para el QR.
type RegistrationResult struct {
	Entry *ChainEntry
	QRURL string
}

// CancellationResult es el resultado de anular una factura.
type CancellationResult struct {
	Entry *ChainEntry
}

// maxRecordsPerSubmission limita los registros por envío SOAP. La AEAT
// rechaza remisiones de más de 1000 registros.
const maxRecordsPerSubmission = 1000

// Service orquesta el ciclo de vida de los registros de facturación:
//
//	encadenar → fechar → calcular huella → validar → persistir → remitir
//
// Los appends de un mismo emisor se serializan en el ChainTxRunner; la
// remisión respeta el TiempoEsperaEnvio que devuelve la AEAT.
type Service struct {
	txRunner  ChainTxRunner
	repo      ChainRepository
	submitter aeat.RecordSubmitter
	qr        *aeat.QRGenerator
	system    record.ComputerSystem
	log       *logger.Logger
	now       func() time.Time

	mu             sync.Mutex
	nextSubmission map[string]time.Time
}

// NewService construye el servicio. submitter puede ser nil si la instancia
// solo genera registros y otra los remite.
func NewService(
	txRunner ChainTxRunner,
	repo ChainRepository,
	submitter aeat.RecordSubmitter,
	qr *aeat.QRGenerator,
	system record.ComputerSystem,
	log *logger.Logger,
) *Service {
	return &Service{
		txRunner:       txRunner,
		repo:           repo,
		submitter:      submitter,
		qr:             qr,
		system:         system,
		log:            log,
		now:            time.Now,
		nextSubmission: make(map[string]time.Time),
	}
}

// RegisterInvoice encadena, fecha, calcula la huella y persiste un registro
// de alta. El caller entrega el registro sin campos de cadena ni huella; si
// los trae, se sobreescriben con el estado real de la cadena.
func (s *Service) RegisterInvoice(ctx context.Context, rec *record.RegistrationRecord) (*RegistrationResult, error) {
	entry, err := s.appendRecord(ctx, rec, EntryRegistration, false)
	if err != nil {
		return nil, err
	}
	return &RegistrationResult{
		Entry: entry,
		QRURL: s.qr.FromRegistrationRecord(rec),
	}, nil
}

// CancelInvoice encadena y persiste un registro de anulación. La anulación
// exige cadena previa: anular sin registros anteriores es domain.ErrEmptyChain.
func (s *Service) CancelInvoice(ctx context.Context, rec *record.CancellationRecord) (*CancellationResult, error) {
	entry, err := s.appendRecord(ctx, rec, EntryCancellation, true)
	if err != nil {
		return nil, err
	}
	return &CancellationResult{Entry: entry}, nil
}

func (s *Service) appendRecord(ctx context.Context, rec record.Record, recordType string, requireChain bool) (*ChainEntry, error) {
	base := rec.Base()
	issuerID := base.InvoiceID.IssuerID
	correlationID := uuid.New()

	var entry *ChainEntry
	err := s.txRunner.Run(ctx, issuerID, func(repo ChainRepository) error {
		head, err := repo.Head(ctx, issuerID)
		if err != nil {
			return err
		}
		if head == nil && requireChain {
			return fmt.Errorf("%w: %s", domain.ErrEmptyChain, issuerID)
		}

		// Encadenar con el estado real, ignorando lo que trajera el caller
		if head != nil {
			base.PreviousInvoiceID = &head.InvoiceID
			base.PreviousHash = head.Hash
		} else {
			base.PreviousInvoiceID = nil
			base.PreviousHash = ""
		}
		base.HashedAt = s.now()

		hash, err := rec.CalculateHash()
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
		}
		base.Hash = hash

		if violations := rec.Validate(); len(violations) > 0 {
			return record.NewInvalidRecordError(violations)
		}

		xml, err := exportXML(rec, s.system)
		if err != nil {
			return err
		}

		entry = &ChainEntry{
			IssuerID:     issuerID,
			InvoiceID:    base.InvoiceID,
			RecordType:   recordType,
			Hash:         base.Hash,
			PreviousHash: base.PreviousHash,
			HashedAt:     base.HashedAt,
			XML:          xml,
		}
		return repo.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("correlation_id", correlationID.String()).
		Str("issuer_id", issuerID).
		Str("invoice_number", base.InvoiceID.InvoiceNumber).
		Str("record_type", recordType).
		Str("hash", base.Hash).
		Bool("first_record", base.PreviousInvoiceID == nil).
		Msg("registro de facturación encadenado")
	return entry, nil
}

// SubmitPending remite a la AEAT los registros pendientes del emisor, en
// orden de encadenamiento, y persiste el veredicto de cada línea. Si la
// remisión anterior impuso un tiempo de espera aún vigente, devuelve
// ThrottledError sin tocar la red.
func (s *Service) SubmitPending(ctx context.Context, issuerID string) (*aeat.Response, error) {
	if s.submitter == nil {
		return nil, errors.New("remisión no configurada en esta instancia")
	}
	if retryAt, throttled := s.throttledUntil(issuerID); throttled {
		return nil, &ThrottledError{RetryAt: retryAt}
	}

	entries, err := s.repo.PendingSubmission(ctx, issuerID, maxRecordsPerSubmission)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoPendingRecords
	}

	records := make([]record.Record, len(entries))
	for i, entry := range entries {
		rec, err := importXML(entry.XML)
		if err != nil {
			return nil, fmt.Errorf("registro %s ilegible: %w", entry.ID, err)
		}
		records[i] = rec
	}

	correlationID := uuid.New()
	s.log.Info().
		Str("correlation_id", correlationID.String()).
		Str("issuer_id", issuerID).
		Int("records", len(records)).
		Msg("remitiendo registros a la AEAT")

	resp, err := s.submitter.Send(ctx, records)
	if err != nil {
		s.log.Error().
			Str("correlation_id", correlationID.String()).
			Str("issuer_id", issuerID).
			Err(err).
			Msg("remisión fallida")
		return nil, err
	}

	s.setWait(issuerID, resp.WaitSeconds)
	s.applyVerdicts(ctx, correlationID, entries, resp)
	return resp, nil
}

// applyVerdicts persiste el estado que la AEAT devolvió para cada línea. Las
// líneas sin correspondencia en la respuesta quedan pendientes y volverán a
// remitirse.
func (s *Service) applyVerdicts(ctx context.Context, correlationID uuid.UUID, entries []ChainEntry, resp *aeat.Response) {
	for _, item := range resp.Items {
		entry, ok := matchEntry(entries, item)
		if !ok {
			s.log.Warn().
				Str("correlation_id", correlationID.String()).
				Str("invoice_number", item.InvoiceID.InvoiceNumber).
				Msg("línea de respuesta sin registro pendiente correspondiente")
			continue
		}
		status := submissionStatus(item.Status)
		if err := s.repo.UpdateSubmission(ctx, entry.ID, status, resp.CSV, item.ErrorCode, item.ErrorDescription); err != nil {
			s.log.Error().
				Str("correlation_id", correlationID.String()).
				Str("record_id", entry.ID.String()).
				Err(err).
				Msg("no se pudo persistir el veredicto de la AEAT")
			continue
		}
		if item.Rejected() {
			s.log.Warn().
				Str("correlation_id", correlationID.String()).
				Str("invoice_number", entry.InvoiceID.InvoiceNumber).
				Str("error_code", item.ErrorCode).
				Str("error_description", item.ErrorDescription).
				Msg("registro rechazado por la AEAT")
		}
	}
}

// ChainHead devuelve el último eslabón del emisor, o nil si no hay cadena.
func (s *Service) ChainHead(ctx context.Context, issuerID string) (*ChainLink, error) {
	return s.repo.Head(ctx, issuerID)
}

// Records lista los registros persistidos del emisor, los más recientes
// primero.
func (s *Service) Records(ctx context.Context, issuerID string, limit int) ([]ChainEntry, error) {
	return s.repo.Entries(ctx, issuerID, limit)
}

// ── Espera entre envíos ──────────────────────────────────────────────────────

func (s *Service) throttledUntil(issuerID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.nextSubmission[issuerID]
	if !ok || !s.now().Before(until) {
		return time.Time{}, false
	}
	return until, true
}

func (s *Service) setWait(issuerID string, waitSeconds int) {
	if waitSeconds <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubmission[issuerID] = s.now().Add(time.Duration(waitSeconds) * time.Second)
}

// ── Auxiliares ───────────────────────────────────────────────────────────────

func submissionStatus(status aeat.ItemStatus) string {
	switch status {
	case aeat.ItemCorrect:
		return SubmissionAccepted
	case aeat.ItemAcceptedWithErrors:
		return SubmissionAcceptedWithErrors
	default:
		return SubmissionRejected
	}
}

func matchEntry(entries []ChainEntry, item aeat.ResponseItem) (*ChainEntry, bool) {
	itemType := string(item.RecordType)
	for i := range entries {
		if entries[i].RecordType == itemType && entries[i].InvoiceID.Equal(item.InvoiceID) {
			return &entries[i], true
		}
	}
	return nil, false
}

func exportXML(rec record.Record, system record.ComputerSystem) (string, error) {
	doc := etree.NewDocument()
	container := doc.CreateElement("sum:RegistroFactura")
	if el := aeat.ExportRecord(container, rec, system); el == nil {
		return "", fmt.Errorf("tipo de registro desconocido %T", rec)
	}
	return doc.WriteToString()
}

func importXML(raw string) (record.Record, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || len(root.ChildElements()) == 0 {
		return nil, errors.New("documento vacío")
	}
	return aeat.ImportRecord(root.ChildElements()[0])
}
