package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/core"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/repository"
)

type fakeProcessor struct {
	out   core.Outcome
	calls int
	got   core.Upload
}

func (f *fakeProcessor) Process(_ context.Context, up core.Upload) core.Outcome {
	f.calls++
	f.got = up
	_ = os.Remove(up.Path)
	return f.out
}

func newTestServer(t *testing.T, proc *fakeProcessor) (*Server, repository.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := repository.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "t", nil)
	cfg := common.ServerConfig{UploadDir: t.TempDir(), MaxUploadBytes: 1 << 20, RateLimit: 100, RateBurst: 100}
	return NewServer(cfg, proc, store, nil), store
}

func multipartBody(t *testing.T, fileName, contentType, billType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="bill_file"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if billType != "" {
		require.NoError(t, mw.WriteField("bill_type", billType))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, fileName, contentType, billType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body, ct := multipartBody(t, fileName, contentType, billType, []byte("%PDF-1.4 bill"))
	req := httptest.NewRequest(http.MethodPost, "/api/bills/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func sampleRecord() *entity.AnalysisRecord {
	amount := 1234.56
	return &entity.AnalysisRecord{
		BillType:      "electricity",
		UploadedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		ExtractedText: "340 kwh",
		Analysis: entity.Analysis{
			BillSummary:         entity.BillSummary{UtilityType: constants.Electricity, Consumption: 340, Amount: &amount},
			EnvironmentalImpact: entity.EnvironmentalImpact{CarbonEmissions: 278.8, Unit: constants.UnitKgCO2e},
			Narrative:           "ok",
		},
		Metadata: entity.Metadata{FileName: "bill.pdf", FileSize: 13, ContentType: "application/pdf"},
	}
}

func TestUpload_Success(t *testing.T) {
	rec := sampleRecord()
	proc := &fakeProcessor{out: core.Outcome{Kind: core.OutcomeSuccess, Stage: constants.StageDone, RecordID: "abc", Record: rec}}
	s, _ := newTestServer(t, proc)

	resp, body := doUpload(t, s.Routes(), "bill.pdf", "application/pdf", "electricity")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Bill processed successfully", body["message"])
	assert.Equal(t, "abc", body["bill_id"])
	analysis := body["analysis"].(map[string]any)
	impact := analysis["environmental_impact"].(map[string]any)
	assert.Equal(t, 278.8, impact["carbon_emissions"])
	assert.Equal(t, "kg CO2e", impact["unit"])
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	assert.Equal(t, 1, proc.calls)
	assert.Equal(t, "electricity", proc.got.BillType)
	assert.Equal(t, "bill.pdf", proc.got.FileName)
	assert.Equal(t, "application/pdf", proc.got.ContentType)
	assert.Equal(t, int64(len("%PDF-1.4 bill")), proc.got.FileSize)
}

func TestUpload_BadInput(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		billType    string
		wantError   string
	}{
		{"missing file", "", "", "electricity", "Missing required fields"},
		{"missing bill type", "bill.pdf", "application/pdf", "", "Missing required fields"},
		{"wrong content type", "bill.txt", "text/plain", "electricity", "Invalid file type"},
		{"unsupported extension", "bill.docx", "application/pdf", "electricity", "Invalid file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{}
			s, _ := newTestServer(t, proc)
			resp, body := doUpload(t, s.Routes(), tt.fileName, tt.contentType, tt.billType)

			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Zero(t, proc.calls)
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	proc := &fakeProcessor{}
	s, _ := newTestServer(t, proc)
	s.cfg.MaxUploadBytes = 64
	body, ct := multipartBody(t, "bill.pdf", "application/pdf", "gas", bytes.Repeat([]byte("x"), 1024))
	req := httptest.NewRequest(http.MethodPost, "/api/bills/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, proc.calls)
}

func TestUpload_Outcomes(t *testing.T) {
	amount := 10.0
	tests := []struct {
		name   string
		out    core.Outcome
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "no fields",
			out:    core.Outcome{Kind: core.OutcomeUnprocessable, Stage: constants.StageFields, ExtractedText: "hello"},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Could not extract bill information", body["error"])
				assert.Equal(t, "fields", body["stage"])
				assert.Equal(t, "hello", body["extracted_text"])
			},
		},
		{
			name:   "no emission",
			out:    core.Outcome{Kind: core.OutcomeUnprocessable, Stage: constants.StageEmission, BillInfo: &entity.BillInfo{Amount: &amount}},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Could not calculate carbon impact", body["error"])
				info := body["bill_info"].(map[string]any)
				assert.Equal(t, 10.0, info["amount"])
			},
		},
		{
			name:   "fault",
			out:    core.Outcome{Kind: core.OutcomeFailed, Stage: constants.StageExtract, Err: common.OCRError("recognize image", errors.New("boom"))},
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Failed to process bill", body["message"])
				assert.Equal(t, "extract", body["stage"])
				assert.Equal(t, common.CodeOCR, body["code"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &fakeProcessor{out: tt.out})
			resp, body := doUpload(t, s.Routes(), "bill.png", "image/png", "water")
			assert.Equal(t, tt.status, resp.Code)
			tt.check(t, body)
		})
	}
}

func TestUpload_RateLimited(t *testing.T) {
	proc := &fakeProcessor{out: core.Outcome{Kind: core.OutcomeUnprocessable, Stage: constants.StageFields}}
	s, _ := newTestServer(t, proc)
	s.limiter = NewIPRateLimiter(0, 1)
	h := s.Routes()

	first, _ := doUpload(t, h, "bill.pdf", "application/pdf", "gas")
	second, body := doUpload(t, h, "bill.pdf", "application/pdf", "gas")
	assert.Equal(t, http.StatusUnprocessableEntity, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Equal(t, 1, proc.calls)
}

func TestGetBill(t *testing.T) {
	s, store := newTestServer(t, &fakeProcessor{})
	id, err := store.Create(context.Background(), sampleRecord())
	require.NoError(t, err)
	h := s.Routes()

	for _, target := range []string{"/api/bills/" + id, "/api/bills/?bill_id=" + id} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code, target)
		var got entity.AnalysisRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "electricity", got.BillType)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bill not found", body["error"])
	assert.Equal(t, "missing", body["bill_id"])
}

func TestListBills(t *testing.T) {
	s, store := newTestServer(t, &fakeProcessor{})
	for i := 0; i < 3; i++ {
		_, err := store.Create(context.Background(), sampleRecord())
		require.NoError(t, err)
	}
	h := s.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/?page=2&per_page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		TotalBills int                      `json:"total_bills"`
		Page       int                      `json:"page"`
		PerPage    int                      `json:"per_page"`
		TotalPages int                      `json:"total_pages"`
		Bills      []*entity.AnalysisRecord `json:"bills"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.TotalBills)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 2, body.PerPage)
	assert.Equal(t, 2, body.TotalPages)
	assert.Len(t, body.Bills, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/?per_page=1000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 100, body.PerPage)
	assert.Equal(t, 1, body.Page)
	assert.Len(t, body.Bills, 3)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/?page=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportBills(t *testing.T) {
	s, store := newTestServer(t, &fakeProcessor{})
	_, err := store.Create(context.Background(), sampleRecord())
	require.NoError(t, err)
	h := s.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/export.xlsx?from=2024-01-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	b, _ := io.ReadAll(rec.Body)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/export.xlsx?to=January", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, &fakeProcessor{})
	h := s.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "carbon_http_requests_total")
}

type fakePinger struct{ err error }

func (p *fakePinger) Ping(context.Context) error { return p.err }

func TestHealthServer_Refresh(t *testing.T) {
	p := &fakePinger{}
	h := NewHealthServer(p, time.Minute, nil)
	ctx := context.Background()

	h.Refresh(ctx)
	resp, err := h.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: BillsService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	p.err = errors.New("redis down")
	h.Refresh(ctx)
	resp, err = h.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ""})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
