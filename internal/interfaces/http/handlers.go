package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/application/service"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/internal/domain/review"
	"github.com/garyjia/finnexus/internal/infrastructure/export"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	health         HealthFunc
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Version   string      `json:"version"`
	Details   interface{} `json:"details,omitempty"`
}

// AskRequest is the body of POST /api/assistant/messages
type AskRequest struct {
	Text string `json:"text"`
}

// SaveResponse is returned by a successful save
type SaveResponse struct {
	Review  service.ReviewView `json:"review"`
	Invoice *entity.Invoice    `json:"invoice"`
}

// Version is reported by the health check
const Version = "1.0.0"

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}

	status := http.StatusOK
	if h.health != nil {
		ok, details := h.health(c.Request.Context())
		resp.Details = details
		if !ok {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// Dashboard handles GET /api/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.services.Dashboard.Overview(c.Request.Context()),
	})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	var filter service.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid query parameters", nil)
		return
	}

	rows, err := h.services.Dashboard.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "Failed to list invoices", err, nil)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rows})
}

// ExportInvoices handles GET /api/invoices/export
func (h *Handlers) ExportInvoices(c *gin.Context) {
	var filter service.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid query parameters", nil)
		return
	}

	var buf bytes.Buffer
	n, err := h.services.Dashboard.Export(c.Request.Context(), filter, &buf)
	if err != nil {
		h.respondError(c, "Failed to export invoices", err, nil)
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Invoice-Count", fmt.Sprint(n))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// GetReview handles GET /api/review
func (h *Handlers) GetReview(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.services.Review.View(c.Request.Context()),
	})
}

// UploadDocument handles POST /api/review/upload
func (h *Handlers) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "multipart field \"file\" is required", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, "cannot open uploaded file", nil)
		return
	}
	defer f.Close()

	// one byte over the limit is enough for the preparer to reject it
	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		h.fail(c, http.StatusBadRequest, "cannot read uploaded file", nil)
		return
	}

	view, err := h.services.Review.Upload(c.Request.Context(), port.Document{
		Data:     data,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Filename: fileHeader.Filename,
	})
	if err != nil {
		h.respondError(c, "Upload failed", err, view)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// StartManual handles POST /api/review/manual
func (h *Handlers) StartManual(c *gin.Context) {
	view, err := h.services.Review.StartManual(c.Request.Context())
	if err != nil {
		h.respondError(c, "Cannot start manual entry", err, view)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// EditDraft handles PATCH /api/review/draft
func (h *Handlers) EditDraft(c *gin.Context) {
	var patch review.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid draft patch: "+err.Error(), nil)
		return
	}

	view, err := h.services.Review.Edit(c.Request.Context(), patch)
	if err != nil {
		h.respondError(c, "Cannot edit draft", err, view)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// SaveDraft handles POST /api/review/save
func (h *Handlers) SaveDraft(c *gin.Context) {
	view, inv, err := h.services.Review.Save(c.Request.Context())
	if err != nil {
		h.respondError(c, "Cannot save draft", err, view)
		return
	}

	h.logger.Info("Invoice saved", "invoice_id", inv.ID)
	c.JSON(http.StatusOK, Response{Success: true, Data: SaveResponse{Review: view, Invoice: inv}})
}

// CancelReview handles POST /api/review/cancel
func (h *Handlers) CancelReview(c *gin.Context) {
	view, err := h.services.Review.Cancel(c.Request.Context())
	if err != nil {
		h.respondError(c, "Cannot cancel", err, view)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// ListMessages handles GET /api/assistant/messages
func (h *Handlers) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.services.Assistant.Messages(c.Request.Context()),
	})
}

// AskAssistant handles POST /api/assistant/messages
func (h *Handlers) AskAssistant(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	reply, err := h.services.Assistant.Ask(c.Request.Context(), req.Text)
	if err != nil {
		h.respondError(c, "Assistant request rejected", err, nil)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: reply})
}

// respondError maps service errors to status codes. data, when not nil,
// is sent along so the client can redraw the current state.
func (h *Handlers) respondError(c *gin.Context, msg string, err error, data interface{}) {
	status := statusFor(err)

	message := err.Error()
	var extErr *port.ExtractionError
	if errors.As(err, &extErr) {
		message = review.ExtractionFailedNotice
	}
	if status == http.StatusInternalServerError {
		message = "internal error"
	}

	h.logger.Error(msg, "status", status, "error", err)
	h.fail(c, status, message, data)
}

func (h *Handlers) fail(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: false, Data: data, Error: message})
}

func statusFor(err error) int {
	var extErr *port.ExtractionError
	var valErr *review.ValidationError

	switch {
	case errors.As(err, &extErr):
		return http.StatusBadGateway
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, review.ErrInvalidTransition),
		errors.Is(err, review.ErrGuardFailed),
		errors.Is(err, review.ErrStaleResult),
		errors.Is(err, port.ErrDuplicateInvoice),
		errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownStatus),
		errors.Is(err, service.ErrEmptyQuestion),
		errors.Is(err, review.ErrEmptyPatch),
		errors.Is(err, entity.ErrAmountOutOfRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
