package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/dispatcher"
	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/application/service"
	"github.com/garyjia/finnexus/internal/dataset"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/internal/domain/review"
	"github.com/garyjia/finnexus/internal/infrastructure/export"
	"github.com/garyjia/finnexus/internal/infrastructure/persistence/memory"
	"github.com/garyjia/finnexus/pkg/utils"
)

type passPreparer struct{}

func (passPreparer) Prepare(_ context.Context, upload port.Document) (*port.Document, error) {
	return &upload, nil
}

type stubExtractor struct {
	fields entity.ExtractedFields
	err    error
}

func (e *stubExtractor) ExtractDraftFields(context.Context, []byte, string) (entity.ExtractedFields, error) {
	return e.fields, e.err
}

type stubAssistant struct{}

func (stubAssistant) AnswerQuestion(_ context.Context, question string, snap entity.Snapshot) (string, error) {
	return "seen " + question, nil
}

type testAPI struct {
	router    *gin.Engine
	extractor *stubExtractor
	healthy   bool
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := utils.ZapKV(zap.NewNop())
	ds := dataset.Default()
	store := memory.NewInvoiceStore(ds.Invoices())
	disp := dispatcher.NewDispatcher()
	t.Cleanup(func() { _ = disp.Close() })

	api := &testAPI{extractor: &stubExtractor{}, healthy: true}

	dashboard := service.NewDashboardService(store, ds, export.NewXLSXExporter(), 7, logger)
	services := Services{
		Review: service.NewReviewService(
			review.NewWorkflow("FinNexus Tech"), passPreparer{}, api.extractor, store, disp, logger),
		Dashboard: dashboard,
		Assistant: service.NewAssistantService(stubAssistant{}, dashboard, disp, service.AssistantTexts{}, logger),
	}

	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	health := func(context.Context) (bool, interface{}) { return api.healthy, nil }

	api.router = NewServer(cfg, services, health, logger).Router()
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp Response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (a *testAPI) upload(t *testing.T) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="invoice.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/review/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// dataMap re-decodes resp.Data as a generic object
func dataMap(t *testing.T, resp Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", dataMap(t, resp)["status"])

	api.healthy = false
	w, resp = api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestDashboard(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := dataMap(t, resp)
	assert.Len(t, data["metrics"], 4)
	assert.Len(t, data["charts"], 10)
}

func TestListInvoices(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodGet, "/api/invoices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := resp.Data.([]interface{})
	require.Len(t, rows, 5)
	assert.Equal(t, "INV-001", rows[0].(map[string]interface{})["id"])
	assert.Contains(t, rows[0], "dueSoon")

	w, resp = api.do(t, http.MethodGet, "/api/invoices?status=Paid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, r := range resp.Data.([]interface{}) {
		assert.Equal(t, "Paid", r.(map[string]interface{})["status"])
	}

	w, resp = api.do(t, http.MethodGet, "/api/invoices?status=Lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestExportInvoices(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(t, http.MethodGet, "/api/invoices/export", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "5", w.Header().Get("X-Invoice-Count"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip file")
}

func TestReviewFlow_ManualEntry(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodPost, "/api/review/manual", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REVIEWING", dataMap(t, resp)["phase"])

	w, resp = api.do(t, http.MethodPost, "/api/review/save", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errs := dataMap(t, resp)["errors"].(map[string]interface{})
	assert.Equal(t, "Required", errs["invoiceNo"])
	assert.Equal(t, "MustBePositive", errs["amount"])

	w, _ = api.do(t, http.MethodPatch, "/api/review/draft", map[string]interface{}{
		"invoiceNo":  "NEW-1",
		"clientName": "Gamma Ltd",
		"amount":     "320.00",
		"dueDate":    "2099-01-01",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = api.do(t, http.MethodPost, "/api/review/save", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := dataMap(t, resp)
	assert.Equal(t, "IDLE", saved["review"].(map[string]interface{})["phase"])
	assert.Equal(t, "NEW-1", saved["invoice"].(map[string]interface{})["invoiceNo"])

	_, resp = api.do(t, http.MethodGet, "/api/invoices", nil)
	rows := resp.Data.([]interface{})
	require.Len(t, rows, 6)
	assert.Equal(t, "NEW-1", rows[0].(map[string]interface{})["invoiceNo"])
}

func TestReviewFlow_Upload(t *testing.T) {
	api := newTestAPI(t)
	no := "INV-2023-089"
	api.extractor.fields = entity.ExtractedFields{InvoiceNo: &no}

	w, resp := api.upload(t)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, resp)
	assert.Equal(t, "REVIEWING", data["phase"])
	assert.Equal(t, no, data["draft"].(map[string]interface{})["invoiceNo"])

	w, resp = api.do(t, http.MethodPost, "/api/review/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IDLE", dataMap(t, resp)["phase"])
}

func TestReviewFlow_UploadFailure(t *testing.T) {
	api := newTestAPI(t)
	api.extractor.err = &port.ExtractionError{Reason: "timeout", Err: errors.New("deadline exceeded")}

	w, resp := api.upload(t)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, review.ExtractionFailedNotice, resp.Error)
	data := dataMap(t, resp)
	assert.Equal(t, "IDLE", data["phase"])
	assert.Nil(t, data["draft"])
}

func TestReviewFlow_UploadWithoutFile(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodPost, "/api/review/upload", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestReviewFlow_WrongPhase(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/review/save", "/api/review/cancel"} {
		w, resp := api.do(t, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusConflict, w.Code, path)
		assert.Equal(t, "IDLE", dataMap(t, resp)["phase"])
	}
}

func TestEditDraft_BadBody(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/review/manual", nil)

	w, _ := api.do(t, http.MethodPatch, "/api/review/draft", `{"date":"15/10/2023"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodPatch, "/api/review/draft", `{"status":"Lost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditDraft_RejectsOutOfRangeAmount(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/review/manual", nil)

	w, body := api.do(t, http.MethodPatch, "/api/review/draft", `{"amount":"1e5000000"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	assert.Less(t, w.Body.Len(), 4096)

	w, _ = api.do(t, http.MethodPatch, "/api/review/draft", `{"items":[{"name":"a","unitPrice":"1e400"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodPatch, "/api/review/draft", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/review", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Less(t, w.Body.Len(), 4096)
}

func TestAssistant(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(t, http.MethodGet, "/api/assistant/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)

	w, _ = api.do(t, http.MethodPost, "/api/assistant/messages", AskRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = api.do(t, http.MethodPost, "/api/assistant/messages", AskRequest{Text: "revenue?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "seen revenue?", dataMap(t, resp)["text"])

	_, resp = api.do(t, http.MethodGet, "/api/assistant/messages", nil)
	assert.Len(t, resp.Data, 3)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&port.ExtractionError{Reason: "x"}, http.StatusBadGateway},
		{&review.ValidationError{}, http.StatusUnprocessableEntity},
		{review.ErrInvalidTransition, http.StatusConflict},
		{review.ErrStaleResult, http.StatusConflict},
		{service.ErrBusy, http.StatusConflict},
		{port.ErrDuplicateInvoice, http.StatusConflict},
		{service.ErrUnknownStatus, http.StatusBadRequest},
		{review.ErrEmptyPatch, http.StatusBadRequest},
		{fmt.Errorf("amount: %w", entity.ErrAmountOutOfRange), http.StatusBadRequest},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(t, http.MethodOptions, "/api/review/draft", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
