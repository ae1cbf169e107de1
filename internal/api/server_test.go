package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/tv_export/internal/artifact"
	"github.com/dgnsrekt/tv_export/internal/config"
	"github.com/dgnsrekt/tv_export/internal/controller"
	"github.com/dgnsrekt/tv_export/internal/equity"
	"github.com/dgnsrekt/tv_export/internal/normalize"
)

type stubService struct {
	exportErr   error
	lastChart   string
	lastWait    bool
	lastSeries  []equity.Point
	lastMetrics []normalize.StrategyMetrics
	deleted     string
}

func (s *stubService) ListCharts(ctx context.Context) []config.Chart {
	return []config.Chart{{Slug: "equity-curve", ElementID: "equity-chart", Title: "Equity Curve"}}
}

func (s *stubService) Normalize(ctx context.Context, strategies []normalize.StrategyMetrics) ([]normalize.AxisPoint, error) {
	s.lastMetrics = strategies
	if err := normalize.Validate(strategies); err != nil {
		return nil, &controller.CodedError{Code: controller.CodeValidation, Message: err.Error()}
	}
	return normalize.Normalize(strategies), nil
}

func (s *stubService) FormatSeries(ctx context.Context, series []equity.Point) (string, []equity.Label) {
	return "USD", equity.NewFormatter("USD").Labels(series)
}

func (s *stubService) ExportData(ctx context.Context, chart string, series []equity.Point, showBenchmark, wait bool) (controller.ExportStatus, error) {
	s.lastChart, s.lastSeries, s.lastWait = chart, series, wait
	if s.exportErr != nil {
		return controller.ExportStatus{}, s.exportErr
	}
	return controller.ExportStatus{Kind: "data", Filename: chart + "-2024-01-02.csv", Status: "saved"}, nil
}

func (s *stubService) ExportImage(ctx context.Context, chart, elementID string, wait bool) (controller.ExportStatus, error) {
	s.lastChart, s.lastWait = chart, wait
	if s.exportErr != nil {
		return controller.ExportStatus{}, s.exportErr
	}
	if !wait {
		return controller.ExportStatus{Kind: "image", Status: "pending"}, nil
	}
	return controller.ExportStatus{Kind: "image", Filename: chart + "-2024-01-02.png", Status: "saved"}, nil
}

func (s *stubService) ListArtifacts(ctx context.Context) ([]artifact.Meta, error) { return nil, nil }

func (s *stubService) GetArtifact(ctx context.Context, id string) (artifact.Meta, error) {
	if id != "known" {
		return artifact.Meta{}, &controller.CodedError{Code: controller.CodeArtifactNotFound, Message: "artifact not found"}
	}
	return artifact.Meta{ID: id, Filename: "equity-2024-01-02.csv", Kind: artifact.KindCSV}, nil
}

func (s *stubService) ReadArtifact(ctx context.Context, id string) ([]byte, artifact.Meta, error) {
	meta, err := s.GetArtifact(ctx, id)
	if err != nil {
		return nil, artifact.Meta{}, err
	}
	return []byte("Date,Equity\n2024-01-01,100000"), meta, nil
}

func (s *stubService) DeleteArtifact(ctx context.Context, id string) error {
	s.deleted = id
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocsDarkMode(t *testing.T) {
	w := do(t, NewServer(&stubService{}), http.MethodGet, "/docs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}
}

func TestHealthAndCharts(t *testing.T) {
	h := NewServer(&stubService{})
	if w := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}

	w := do(t, h, http.MethodGet, "/api/v1/charts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("charts status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Charts []config.Chart `json:"charts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Charts) != 1 || body.Charts[0].ElementID != "equity-chart" {
		t.Fatalf("charts = %+v", body.Charts)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc)

	w := do(t, h, http.MethodPost, "/api/v1/metrics/normalize", `{"strategies":[{"name":"alpha","total_return":10,"win_rate":55}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Points []map[string]any `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Points) != 5 {
		t.Fatalf("len(points) = %d, want 5", len(body.Points))
	}
	if body.Points[0]["metric"] != "Return" || body.Points[0]["alpha"] != float64(100) {
		t.Fatalf("first point = %v", body.Points[0])
	}
	if svc.lastMetrics[0].WinRate != 55 {
		t.Fatalf("metrics not forwarded: %+v", svc.lastMetrics)
	}

	w = do(t, h, http.MethodPost, "/api/v1/metrics/normalize", `{"strategies":[{"name":"a"},{"name":"a"}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", w.Code)
	}
}

func TestFormatEndpoint(t *testing.T) {
	w := do(t, NewServer(&stubService{}), http.MethodPost, "/api/v1/equity/format",
		`{"series":[{"date":"2024-01-01","equity":100000},{"date":"2024-01-02","equity":110000,"benchmark":101000}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Currency string         `json:"currency"`
		Labels   []equity.Label `json:"labels"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Currency != "USD" || len(body.Labels) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if got := body.Labels[1]; got.Change != "+10.00%" || got.Benchmark != "$101,000" || got.Date != "Jan 2, 2024" {
		t.Fatalf("label = %+v", got)
	}
}

func TestExportEndpoints(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc)

	w := do(t, h, http.MethodPost, "/api/v1/exports/data?wait=true", `{"chart":"equity-curve","series":[{"date":"2024-01-01","equity":100000}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("data status = %d: %s", w.Code, w.Body.String())
	}
	if !svc.lastWait || svc.lastChart != "equity-curve" || len(svc.lastSeries) != 1 {
		t.Fatalf("data request not forwarded: %+v", svc)
	}

	w = do(t, h, http.MethodPost, "/api/v1/exports/image", `{"chart":"equity-curve"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("image status = %d: %s", w.Code, w.Body.String())
	}
	var st controller.ExportStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "pending" || svc.lastWait {
		t.Fatalf("image status = %+v (wait=%v)", st, svc.lastWait)
	}
}

func TestExportErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{controller.CodeValidation, http.StatusBadRequest},
		{controller.CodeChartNotFound, http.StatusNotFound},
		{controller.CodeEmptyInput, http.StatusUnprocessableEntity},
		{controller.CodeElementNotFound, http.StatusBadGateway},
		{controller.CodeExportFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := &stubService{exportErr: &controller.CodedError{Code: tt.code, Message: "boom"}}
			w := do(t, NewServer(svc), http.MethodPost, "/api/v1/exports/image?wait=true", `{"chart":"equity-curve"}`)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestArtifactEndpoints(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc)

	w := do(t, h, http.MethodGet, "/api/v1/artifacts", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"artifacts":[]`) {
		t.Fatalf("list = %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/v1/artifacts/known/download", "")
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "text/csv;charset=utf-8" {
		t.Fatalf("content-type = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=equity-2024-01-02.csv" {
		t.Fatalf("content-disposition = %q", got)
	}
	if w.Body.String() != "Date,Equity\n2024-01-01,100000" {
		t.Fatalf("body = %q", w.Body.String())
	}

	if w := do(t, h, http.MethodGet, "/api/v1/artifacts/missing/metadata", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing metadata status = %d", w.Code)
	}

	if w := do(t, h, http.MethodDelete, "/api/v1/artifacts/known", ""); w.Code != http.StatusOK || svc.deleted != "known" {
		t.Fatalf("delete = %d, deleted=%q", w.Code, svc.deleted)
	}
}
