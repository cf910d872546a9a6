package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/custodia-labs/maintenance-agent/docs"
	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// Mock services for testing

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

type mockAnalysisService struct {
	analyzeFn func(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error)
}

func (m *mockAnalysisService) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockLogService struct {
	getFn       func(ctx context.Context, id int64) (*domain.LogRecord, error)
	listFn      func(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error)
	reportFn    func(ctx context.Context, filter domain.LogFilter) (*domain.LogReport, error)
	overdueFn   func(ctx context.Context) ([]*domain.LogRecord, error)
	resolveFn   func(ctx context.Context, id int64) (*domain.LogRecord, error)
	unresolveFn func(ctx context.Context, id int64) (*domain.LogRecord, error)
}

func (m *mockLogService) Record(ctx context.Context, req domain.AnalyzeRequest, resp *domain.AnalyzeResponse, responseJSON []byte) (*domain.LogRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLogService) Get(ctx context.Context, id int64) (*domain.LogRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLogService) List(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLogService) Report(ctx context.Context, filter domain.LogFilter) (*domain.LogReport, error) {
	if m.reportFn != nil {
		return m.reportFn(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLogService) Overdue(ctx context.Context) ([]*domain.LogRecord, error) {
	if m.overdueFn != nil {
		return m.overdueFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLogService) Resolve(ctx context.Context, id int64) (*domain.LogRecord, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLogService) Unresolve(ctx context.Context, id int64) (*domain.LogRecord, error) {
	if m.unresolveFn != nil {
		return m.unresolveFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

type mockIndexService struct {
	searchFn  func(ctx context.Context, query string, topK int) ([]domain.RetrievedSource, error)
	rebuildFn func(ctx context.Context) (*domain.IndexStatus, error)
	status    domain.IndexStatus
}

func (m *mockIndexService) Search(ctx context.Context, query string, topK int) ([]domain.RetrievedSource, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, topK)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIndexService) Rebuild(ctx context.Context) (*domain.IndexStatus, error) {
	if m.rebuildFn != nil {
		return m.rebuildFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIndexService) Status() domain.IndexStatus {
	return m.status
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestServer(svc Services) *Server {
	cfg := DefaultConfig()
	cfg.Version = "test"
	cfg.Logger = quietLogger()
	cfg.RateLimit = RateLimitConfig{}
	return NewServer(cfg, svc)
}

// withRole authenticates every bearer token as the given operator
func withRole(role domain.Role) *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			return &domain.AuthContext{Username: "tester", Role: role}, nil
		},
	}
}

func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func doRequest(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	server := &Server{version: "test"}

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	server.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	server := &Server{
		version:      "test",
		logStore:     &mockPinger{},
		indexService: &mockIndexService{status: domain.IndexStatus{Chunks: 12}},
	}

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	server.handleReady(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response ReadyResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ready" {
		t.Errorf("expected status 'ready', got %s", response.Status)
	}
	if response.Components["log_store"] != "healthy" {
		t.Errorf("expected healthy log store, got %q", response.Components["log_store"])
	}
	if response.Components["index"] != "loaded" {
		t.Errorf("expected loaded index, got %q", response.Components["index"])
	}
	if _, ok := response.Components["lock"]; ok {
		t.Error("expected no lock component when none is configured")
	}
}

func TestReadyHandler_LogStoreDown(t *testing.T) {
	server := &Server{
		version:      "test",
		logStore:     &mockPinger{err: errors.New("database is locked")},
		indexService: &mockIndexService{status: domain.IndexStatus{Empty: true}},
	}

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	server.handleReady(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}

	var response ReadyResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Components["log_store"] != "unhealthy" {
		t.Errorf("expected unhealthy log store, got %q", response.Components["log_store"])
	}
	if response.Components["index"] != "empty" {
		t.Errorf("expected empty index, got %q", response.Components["index"])
	}
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	req := httptest.NewRequest("GET", "/version", nil)
	rr := httptest.NewRecorder()

	server.handleVersion(rr, req)

	var response VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %s", response.Version)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]string{"foo": "bar"})

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["foo"] != "bar" {
		t.Errorf("expected foo 'bar', got %s", response["foo"])
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", response.Error)
	}
}

func TestDecodeImageBase64(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe}
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"standard", base64.StdEncoding.EncodeToString(raw), false},
		{"unpadded", base64.RawStdEncoding.EncodeToString(raw), false},
		{"url safe", base64.URLEncoding.EncodeToString(raw), false},
		{"data uri", "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), false},
		{"surrounding whitespace", "  " + base64.StdEncoding.EncodeToString(raw) + "\n", false},
		{"empty", "", true},
		{"not base64", "not*base64!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeImageBase64(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Errorf("expected %v, got %v", raw, got)
			}
		})
	}
}

func TestHandleAnalyze_Success(t *testing.T) {
	img64 := pngBase64(t)
	var got domain.AnalyzeRequest
	want := &domain.AnalyzeResponse{
		Status:            domain.StatusNG,
		DefectType:        "oil_leak",
		Confidence:        0.82,
		ActionRecommended: "A defect is detected, but no matching manual section was found. Please check the machine manually and consult senior engineer.",
		RAGSources:        []domain.RetrievedSource{},
		LatencyMS:         12.5,
	}
	server := newTestServer(Services{
		Analysis: &mockAnalysisService{
			analyzeFn: func(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
				got = req
				return want, nil
			},
		},
	})

	body := `{"image_base64":"` + img64 + `","question":"leaking under the pump","client_id":"line-3"}`
	rr := doRequest(server.Handler(), "POST", "/analyze", body, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Question != "leaking under the pump" || got.ClientID != "line-3" {
		t.Errorf("request fields not forwarded: %+v", got)
	}
	if len(got.Image) == 0 {
		t.Error("expected decoded image bytes")
	}

	expected, _ := json.Marshal(want)
	if rr.Body.String() != string(expected) {
		t.Errorf("expected body %s, got %s", expected, rr.Body.String())
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestHandleAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		expected int
	}{
		{"invalid json", "not json", nil, http.StatusBadRequest},
		{"undecodable base64", `{"image_base64":"%%%"}`, nil, http.StatusBadRequest},
		{"invalid image", `{"image_base64":"aGVsbG8="}`, domain.ErrInvalidImage, http.StatusBadRequest},
		{"classifier failure", `{"image_base64":"aGVsbG8="}`, domain.ErrClassification, http.StatusBadGateway},
		{"index failure", `{"image_base64":"aGVsbG8="}`, domain.ErrEmbeddingDimensionMismatch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(Services{
				Analysis: &mockAnalysisService{
					analyzeFn: func(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
						if tt.err == nil {
							t.Error("analysis should not be called")
						}
						return nil, tt.err
					},
				},
			})

			rr := doRequest(server.Handler(), "POST", "/analyze", tt.body, "")

			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestHandleAnalyze_BodyTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logger = quietLogger()
	cfg.MaxBodyBytes = 64
	server := NewServer(cfg, Services{Analysis: &mockAnalysisService{}})

	body := `{"image_base64":"` + strings.Repeat("A", 256) + `"}`
	rr := doRequest(server.Handler(), "POST", "/analyze", body, "")

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rr.Code)
	}
}

func TestHandleLogin(t *testing.T) {
	expires := time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC)
	server := newTestServer(Services{
		Auth: &mockAuthService{
			authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
				if req.Username == "alice" && req.Password == "secret" {
					return &domain.LoginResponse{Token: "jwt", ExpiresAt: expires, Username: "alice", Role: domain.RoleOperator}, nil
				}
				if req.Username == "" {
					return nil, domain.ErrInvalidInput
				}
				return nil, domain.ErrInvalidCredentials
			},
		},
	})

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"success", `{"username":"alice","password":"secret"}`, http.StatusOK},
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"missing username", `{"password":"secret"}`, http.StatusBadRequest},
		{"invalid json", "invalid json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(server.Handler(), "POST", "/api/v1/auth/login", tt.body, "")
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestHandleGetMe(t *testing.T) {
	server := newTestServer(Services{Auth: withRole(domain.RoleViewer)})

	rr := doRequest(server.Handler(), "GET", "/api/v1/me", "", "token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var me domain.AuthContext
	if err := json.NewDecoder(rr.Body).Decode(&me); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if me.Username != "tester" || me.Role != domain.RoleViewer {
		t.Errorf("unexpected operator %+v", me)
	}
}

func TestHandleListLogs_Filter(t *testing.T) {
	var got domain.LogFilter
	server := newTestServer(Services{
		Auth: withRole(domain.RoleViewer),
		Logs: &mockLogService{
			listFn: func(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
				got = filter
				return []*domain.LogRecord{{ID: 7, Status: domain.StatusNG, DefectType: "crack"}}, nil
			},
		},
	})

	path := "/api/v1/logs?resolution=unresolved&status=ng&client_id=line-3&since=2025-11-01&until=2025-11-27T00:00:00Z&limit=50"
	rr := doRequest(server.Handler(), "GET", path, "", "token")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Resolution != domain.ResolutionUnresolved {
		t.Errorf("expected unresolved filter, got %q", got.Resolution)
	}
	if got.Status != domain.StatusNG {
		t.Errorf("expected NG filter, got %q", got.Status)
	}
	if got.ClientID != "line-3" {
		t.Errorf("expected client filter, got %q", got.ClientID)
	}
	if got.Since == nil || !got.Since.Equal(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected since %v", got.Since)
	}
	if got.Until == nil || !got.Until.Equal(time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected until %v", got.Until)
	}
	if got.Limit != 50 {
		t.Errorf("expected limit 50, got %d", got.Limit)
	}

	var resp logListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || resp.Records[0].ID != 7 {
		t.Errorf("unexpected listing %+v", resp)
	}
}

func TestHandleListLogs_InvalidFilter(t *testing.T) {
	server := newTestServer(Services{
		Auth: withRole(domain.RoleViewer),
		Logs: &mockLogService{
			listFn: func(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
				t.Error("list should not be called")
				return nil, nil
			},
		},
	})

	for _, query := range []string{
		"resolution=sometimes",
		"status=MAYBE",
		"since=yesterday",
		"limit=ten",
		"limit=-1",
		"since=2025-11-27&until=2025-11-01",
	} {
		t.Run(query, func(t *testing.T) {
			rr := doRequest(server.Handler(), "GET", "/api/v1/logs?"+query, "", "token")
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestHandleListLogs_RequiresAuth(t *testing.T) {
	server := newTestServer(Services{Auth: withRole(domain.RoleViewer), Logs: &mockLogService{}})

	rr := doRequest(server.Handler(), "GET", "/api/v1/logs", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleLogReport(t *testing.T) {
	uptime := 70.0
	server := newTestServer(Services{
		Auth: withRole(domain.RoleViewer),
		Logs: &mockLogService{
			reportFn: func(ctx context.Context, filter domain.LogFilter) (*domain.LogReport, error) {
				return &domain.LogReport{Total: 10, OKCount: 7, NGCount: 3, UptimePercent: &uptime}, nil
			},
		},
	})

	rr := doRequest(server.Handler(), "GET", "/api/v1/logs/report", "", "token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var report domain.LogReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.UptimePercent == nil || *report.UptimePercent != 70.0 {
		t.Errorf("expected uptime 70, got %v", report.UptimePercent)
	}
}

func TestHandleOverdueLogs(t *testing.T) {
	server := newTestServer(Services{
		Auth: withRole(domain.RoleViewer),
		Logs: &mockLogService{
			overdueFn: func(ctx context.Context) ([]*domain.LogRecord, error) {
				return nil, nil
			},
		},
	})

	rr := doRequest(server.Handler(), "GET", "/api/v1/logs/overdue", "", "token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"records":[]`) {
		t.Errorf("expected empty records array, got %s", rr.Body.String())
	}
}

func TestHandleGetLog(t *testing.T) {
	server := newTestServer(Services{
		Auth: withRole(domain.RoleViewer),
		Logs: &mockLogService{
			getFn: func(ctx context.Context, id int64) (*domain.LogRecord, error) {
				if id == 1 {
					return &domain.LogRecord{ID: 1, ResponseJSON: `{"status":"OK"}`}, nil
				}
				return nil, domain.ErrNotFound
			},
		},
	})

	tests := []struct {
		path     string
		expected int
	}{
		{"/api/v1/logs/1", http.StatusOK},
		{"/api/v1/logs/2", http.StatusNotFound},
		{"/api/v1/logs/abc", http.StatusBadRequest},
		{"/api/v1/logs/0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := doRequest(server.Handler(), "GET", tt.path, "", "token")
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestHandleResolveWorkflow(t *testing.T) {
	resolvedAt := time.Date(2025, 11, 27, 12, 0, 0, 0, time.UTC)
	logs := &mockLogService{
		resolveFn: func(ctx context.Context, id int64) (*domain.LogRecord, error) {
			if id != 5 {
				return nil, domain.ErrNotFound
			}
			return &domain.LogRecord{ID: 5, Resolved: true, ResolvedAt: &resolvedAt}, nil
		},
		unresolveFn: func(ctx context.Context, id int64) (*domain.LogRecord, error) {
			return &domain.LogRecord{ID: id}, nil
		},
	}

	tests := []struct {
		name     string
		role     domain.Role
		path     string
		expected int
	}{
		{"operator resolves", domain.RoleOperator, "/api/v1/logs/5/resolve", http.StatusOK},
		{"admin unresolves", domain.RoleAdmin, "/api/v1/logs/5/unresolve", http.StatusOK},
		{"viewer cannot resolve", domain.RoleViewer, "/api/v1/logs/5/resolve", http.StatusForbidden},
		{"unknown record", domain.RoleOperator, "/api/v1/logs/99/resolve", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(Services{Auth: withRole(tt.role), Logs: logs})
			rr := doRequest(server.Handler(), "POST", tt.path, "", "token")
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleIndexSearch(t *testing.T) {
	var gotTopK int
	server := newTestServer(Services{
		Auth: withRole(domain.RoleViewer),
		Index: &mockIndexService{
			searchFn: func(ctx context.Context, query string, topK int) ([]domain.RetrievedSource, error) {
				gotTopK = topK
				if topK < 1 {
					return nil, domain.ErrInvalidInput
				}
				return []domain.RetrievedSource{{ManualName: "pump.pdf", Page: 4, Score: 0.91, Snippet: "Replace the seal"}}, nil
			},
		},
	})

	rr := doRequest(server.Handler(), "POST", "/api/v1/index/search", `{"query":"oil leak"}`, "token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotTopK != 3 {
		t.Errorf("expected default top_k 3, got %d", gotTopK)
	}

	rr = doRequest(server.Handler(), "POST", "/api/v1/index/search", `{"query":"oil leak","top_k":-2}`, "token")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for negative top_k, got %d", rr.Code)
	}

	rr = doRequest(server.Handler(), "POST", "/api/v1/index/search", `{"query":"  "}`, "token")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for blank query, got %d", rr.Code)
	}
}

func TestHandleRebuildIndex(t *testing.T) {
	tests := []struct {
		name     string
		role     domain.Role
		err      error
		expected int
	}{
		{"admin rebuilds", domain.RoleAdmin, nil, http.StatusOK},
		{"operator forbidden", domain.RoleOperator, nil, http.StatusForbidden},
		{"concurrent rebuild", domain.RoleAdmin, domain.ErrRebuildInProgress, http.StatusConflict},
		{"empty corpus", domain.RoleAdmin, domain.ErrIndexEmpty, http.StatusUnprocessableEntity},
		{"embedding outage", domain.RoleAdmin, domain.ErrServiceUnavailable, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(Services{
				Auth: withRole(tt.role),
				Index: &mockIndexService{
					rebuildFn: func(ctx context.Context) (*domain.IndexStatus, error) {
						if tt.err != nil {
							return nil, tt.err
						}
						return &domain.IndexStatus{Chunks: 42, Documents: 3}, nil
					},
				},
			})

			rr := doRequest(server.Handler(), "POST", "/api/v1/admin/index/rebuild", "", "token")
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestHandleIndexStatus(t *testing.T) {
	server := newTestServer(Services{
		Auth:  withRole(domain.RoleViewer),
		Index: &mockIndexService{status: domain.IndexStatus{Chunks: 42, Documents: 3, Model: "local-hash-v1", Dimensions: 384}},
	})

	rr := doRequest(server.Handler(), "GET", "/api/v1/index/status", "", "token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var status domain.IndexStatus
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Chunks != 42 || status.Model != "local-hash-v1" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestHandleSwaggerDoc(t *testing.T) {
	server := newTestServer(Services{})

	rr := doRequest(server.Handler(), "GET", "/swagger/doc.json", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode swagger document: %v", err)
	}
	if doc.Info.Title != "Maintenance Agent API" {
		t.Errorf("unexpected title %q", doc.Info.Title)
	}
	if _, ok := doc.Paths["/analyze"]; !ok {
		t.Error("expected /analyze to be documented")
	}
}
