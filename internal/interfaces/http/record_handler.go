package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/facturable/verifactu-sif/internal/application/dto"
	"github.com/facturable/verifactu-sif/internal/application/invoicing"
	"github.com/facturable/verifactu-sif/internal/domain"
	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/internal/infrastructure/aeat"
)

// RecordHandler maneja las peticiones HTTP de registros de facturación.
type RecordHandler struct {
	svc *invoicing.Service
}

// NewRecordHandler construye el handler.
func NewRecordHandler(svc *invoicing.Service) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// Register da de alta una factura: encadena, calcula la huella y persiste.
// POST /api/invoicing/registrations
func (h *RecordHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := in.ToRecord()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	result, err := h.svc.RegisterInvoice(c.Context(), rec)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewRecordResponse(result.Entry, result.QRURL))
}

// Cancel anula una factura ya registrada.
// POST /api/invoicing/cancellations
func (h *RecordHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := in.ToRecord()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	result, err := h.svc.CancelInvoice(c.Context(), rec)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewRecordResponse(result.Entry, ""))
}

// Submit remite a la AEAT los registros pendientes del emisor.
// POST /api/invoicing/issuers/:issuerId/submissions
func (h *RecordHandler) Submit(c *fiber.Ctx) error {
	issuerID := c.Params("issuerId")
	if issuerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "issuerId requerido"})
	}
	resp, err := h.svc.SubmitPending(c.Context(), issuerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(newSubmissionResponse(resp))
}

// ChainHead devuelve el último eslabón de la cadena del emisor.
// GET /api/invoicing/issuers/:issuerId/chain
func (h *RecordHandler) ChainHead(c *fiber.Ctx) error {
	issuerID := c.Params("issuerId")
	head, err := h.svc.ChainHead(c.Context(), issuerID)
	if err != nil {
		return writeError(c, err)
	}
	if head == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el emisor no tiene cadena de facturación"})
	}
	return c.JSON(dto.ChainHeadResponse{
		Invoice: dto.NewInvoiceRef(head.InvoiceID),
		Hash:    head.Hash,
	})
}

// List devuelve los registros del emisor, los más recientes primero.
// GET /api/invoicing/issuers/:issuerId/records
func (h *RecordHandler) List(c *fiber.Ctx) error {
	issuerID := c.Params("issuerId")
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	entries, err := h.svc.Records(c.Context(), issuerID, limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.RecordResponse, len(entries))
	for i := range entries {
		out[i] = dto.NewRecordResponse(&entries[i], "")
	}
	return c.JSON(out)
}

// writeError traduce los errores del servicio a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var invalid *record.InvalidRecordError
	if errors.As(err, &invalid) {
		violations := make([]dto.Violation, len(invalid.Violations))
		for i, v := range invalid.Violations {
			violations[i] = dto.Violation{Field: v.Field, Message: v.Message}
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:       "VALIDATION",
			Message:    "el registro no supera la validación",
			Violations: violations,
		})
	}
	var throttled *invoicing.ThrottledError
	if errors.As(err, &throttled) {
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(int64(time.Until(throttled.RetryAt).Seconds())+1, 10))
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "THROTTLED", Message: err.Error()})
	}
	var responseErr *aeat.ResponseError
	if errors.As(err, &responseErr) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "AEAT", Message: err.Error()})
	}
	switch {
	case errors.Is(err, domain.ErrDuplicateRecord):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "la factura ya tiene un registro de este tipo"})
	case errors.Is(err, domain.ErrEmptyChain):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "EMPTY_CHAIN", Message: "el emisor no tiene cadena de facturación"})
	case errors.Is(err, invoicing.ErrNoPendingRecords):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NO_PENDING", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func newSubmissionResponse(resp *aeat.Response) dto.SubmissionResponse {
	out := dto.SubmissionResponse{
		CSV:         resp.CSV,
		Status:      string(resp.Status),
		WaitSeconds: resp.WaitSeconds,
	}
	if !resp.SubmittedAt.IsZero() {
		out.SubmittedAt = resp.SubmittedAt.Format(record.TimestampLayout)
	}
	for _, item := range resp.Items {
		out.Items = append(out.Items, dto.SubmissionItemResponse{
			Invoice:          dto.NewInvoiceRef(item.InvoiceID),
			RecordType:       string(item.RecordType),
			Status:           string(item.Status),
			ErrorCode:        item.ErrorCode,
			ErrorDescription: item.ErrorDescription,
		})
	}
	return out
}
