package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/maintenance-agent/internal/config"
	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// mockIndex implements Index for testing
type mockIndex struct {
	status     domain.IndexStatus
	results    []domain.RetrievedSource
	loadErr    error
	rebuildErr error

	lastQuery string
	lastTopK  int
	rebuilds  int
}

func (m *mockIndex) Search(_ context.Context, query string, topK int) ([]domain.RetrievedSource, error) {
	m.lastQuery = query
	m.lastTopK = topK
	return m.results, nil
}

func (m *mockIndex) Rebuild(_ context.Context) (*domain.IndexStatus, error) {
	m.rebuilds++
	if m.rebuildErr != nil {
		return nil, m.rebuildErr
	}
	return &m.status, nil
}

func (m *mockIndex) Status() domain.IndexStatus { return m.status }

func (m *mockIndex) LoadOrBuild(_ context.Context) error { return m.loadErr }

// mockLogService implements driving.LogService for testing
type mockLogService struct {
	records    []*domain.LogRecord
	report     *domain.LogReport
	lastFilter domain.LogFilter
	resolveErr error
}

func (m *mockLogService) Record(context.Context, domain.AnalyzeRequest, *domain.AnalyzeResponse, []byte) (*domain.LogRecord, error) {
	return nil, nil
}

func (m *mockLogService) Get(_ context.Context, id int64) (*domain.LogRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockLogService) List(_ context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
	m.lastFilter = filter
	return m.records, nil
}

func (m *mockLogService) Report(_ context.Context, filter domain.LogFilter) (*domain.LogReport, error) {
	m.lastFilter = filter
	return m.report, nil
}

func (m *mockLogService) Overdue(context.Context) ([]*domain.LogRecord, error) {
	return m.records, nil
}

func (m *mockLogService) Resolve(ctx context.Context, id int64) (*domain.LogRecord, error) {
	return m.setResolved(ctx, id, true)
}

func (m *mockLogService) Unresolve(ctx context.Context, id int64) (*domain.LogRecord, error) {
	return m.setResolved(ctx, id, false)
}

func (m *mockLogService) setResolved(ctx context.Context, id int64, resolved bool) (*domain.LogRecord, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	rec, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Resolved = resolved
	rec.ResolvedAt = nil
	if resolved {
		ts := time.Date(2025, 11, 28, 9, 0, 0, 0, time.UTC)
		rec.ResolvedAt = &ts
	}
	return rec, nil
}

// setupTestApp replaces the app builder with one that serves mocks
func setupTestApp(t *testing.T) (*mockIndex, *mockLogService) {
	t.Helper()
	index := &mockIndex{}
	logs := &mockLogService{}

	original := newApp
	newApp = func(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
		return &App{Config: cfg, Logger: logger, Index: index, Logs: logs}, nil
	}
	t.Cleanup(func() { newApp = original })
	return index, logs
}

// execute runs the root command and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		indexJSON, logsJSON = false, false
		logsSince, logsUntil, logsClient, logsStatus, logsResolution = "", "", "", "", ""
		tokenUsername, tokenRole = "", string(domain.RoleViewer)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	SetVersion("1.2.3")
	defer func() { version = originalVersion }()

	out, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "maintenance-agent version 1.2.3")
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	originalVersion := version
	defer func() { version = originalVersion }()

	SetVersion("")
	assert.Equal(t, originalVersion, version)
}

func TestRootCmd_HasConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestIndexSearchCmd_RequiresQuery(t *testing.T) {
	_, _, err := execute(t, "index", "search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestIndexSearchCmd_PrintsResults(t *testing.T) {
	index, _ := setupTestApp(t)
	index.results = []domain.RetrievedSource{
		{ManualName: "pump.pdf", Page: 4, Score: 0.91, Snippet: "Replace the\nshaft seal."},
	}

	out, _, err := execute(t, "index", "search", "-k", "5", "oil leak")

	require.NoError(t, err)
	assert.Equal(t, "oil leak", index.lastQuery)
	assert.Equal(t, 5, index.lastTopK)
	assert.Contains(t, out, "[1] pump.pdf p.4 (0.910)")
	assert.Contains(t, out, "Replace the shaft seal.")
}

func TestIndexSearchCmd_JSON(t *testing.T) {
	index, _ := setupTestApp(t)
	index.results = []domain.RetrievedSource{{ManualName: "pump.pdf", Page: 1, Score: 0.5}}

	out, _, err := execute(t, "index", "search", "--json", "seal")

	require.NoError(t, err)
	assert.Contains(t, out, `"manual_name": "pump.pdf"`)
}

func TestIndexSearchCmd_NoResults(t *testing.T) {
	index, _ := setupTestApp(t)
	index.loadErr = domain.ErrIndexEmpty

	out, _, err := execute(t, "index", "search", "seal")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestIndexSearchCmd_CorruptSnapshotIsFatal(t *testing.T) {
	index, _ := setupTestApp(t)
	index.loadErr = domain.ErrCorruptSnapshot

	_, _, err := execute(t, "index", "search", "seal")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)
}

func TestIndexBuildCmd(t *testing.T) {
	index, _ := setupTestApp(t)
	builtAt := time.Date(2025, 11, 27, 19, 30, 5, 0, time.UTC)
	index.status = domain.IndexStatus{Chunks: 12, Documents: 2, Dimensions: 384, Model: "local-hash-v1", BuiltAt: &builtAt}

	out, _, err := execute(t, "index", "build")

	require.NoError(t, err)
	assert.Equal(t, 1, index.rebuilds)
	assert.Contains(t, out, "Chunks:     12")
	assert.Contains(t, out, "Built at:   2025-11-27T19:30:05Z")
}

func TestIndexBuildCmd_InProgress(t *testing.T) {
	index, _ := setupTestApp(t)
	index.rebuildErr = domain.ErrRebuildInProgress

	_, _, err := execute(t, "index", "build")

	assert.ErrorIs(t, err, domain.ErrRebuildInProgress)
}

func TestIndexStatusCmd_Empty(t *testing.T) {
	index, _ := setupTestApp(t)
	index.status = domain.IndexStatus{Empty: true}

	out, _, err := execute(t, "index", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Index is empty.")
}

func TestLogsReportCmd(t *testing.T) {
	_, logs := setupTestApp(t)
	uptime, latency := 70.0, 812.4
	logs.report = &domain.LogReport{
		Total:          10,
		OKCount:        7,
		NGCount:        3,
		UptimePercent:  &uptime,
		AvgLatencyMS:   &latency,
		DefectCounts:   []domain.DefectCount{{DefectType: "oil_leak", Count: 2}, {DefectType: "rust_on_pipe", Count: 1}},
		ClientFailures: []domain.ClientFailureCount{{ClientID: "line-3", Failures: 3}},
	}

	out, _, err := execute(t, "logs", "report", "--since", "2025-11-01", "--client", "line-3", "--status", "ng")

	require.NoError(t, err)
	assert.Contains(t, out, "Uptime:           70.0%")
	assert.Contains(t, out, "Avg latency:      812 ms")
	assert.Contains(t, out, "Critical defects: 3")
	assert.Contains(t, out, "oil_leak")
	assert.Contains(t, out, "No overdue NG records.")

	require.NotNil(t, logs.lastFilter.Since)
	assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), *logs.lastFilter.Since)
	assert.Equal(t, "line-3", logs.lastFilter.ClientID)
	assert.Equal(t, domain.StatusNG, logs.lastFilter.Status)
}

func TestLogsReportCmd_EmptyWindow(t *testing.T) {
	_, logs := setupTestApp(t)
	logs.report = &domain.LogReport{}

	out, _, err := execute(t, "logs", "report")

	require.NoError(t, err)
	assert.Contains(t, out, "Uptime:           n/a")
}

func TestLogsReportCmd_InvalidFilter(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "bad since", args: []string{"--since", "yesterday"}},
		{name: "bad status", args: []string{"--status", "MAYBE"}},
		{name: "inverted window", args: []string{"--since", "2025-11-02", "--until", "2025-11-01"}},
		{name: "bad resolution", args: []string{"--resolution", "pending"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestApp(t)
			_, _, err := execute(t, append([]string{"logs", "report"}, tt.args...)...)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLogsListCmd(t *testing.T) {
	_, logs := setupTestApp(t)
	logs.records = []*domain.LogRecord{{
		ID:         7,
		Timestamp:  time.Date(2025, 11, 27, 19, 30, 5, 0, time.UTC),
		ClientID:   "line-3",
		DefectType: "oil_leak",
		Status:     domain.StatusNG,
		Confidence: 0.82,
	}}

	out, _, err := execute(t, "logs", "list", "-n", "10", "--resolution", "unresolved")

	require.NoError(t, err)
	assert.Contains(t, out, "#7")
	assert.Contains(t, out, "oil_leak")
	assert.Contains(t, out, "open")
	assert.Equal(t, 10, logs.lastFilter.Limit)
	assert.Equal(t, domain.ResolutionUnresolved, logs.lastFilter.Resolution)
}

func TestLogsResolveCmd(t *testing.T) {
	_, logs := setupTestApp(t)
	logs.records = []*domain.LogRecord{{ID: 3, Status: domain.StatusNG}}

	out, _, err := execute(t, "logs", "resolve", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Record 3 resolved at 2025-11-28T09:00:00Z")
	assert.True(t, logs.records[0].Resolved)

	out, _, err = execute(t, "logs", "unresolve", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Record 3 reopened")
	assert.False(t, logs.records[0].Resolved)
}

func TestLogsResolveCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		message string
	}{
		{name: "not a number", arg: "abc", message: "invalid record id"},
		{name: "zero", arg: "0", message: "invalid record id"},
		{name: "unknown", arg: "99", message: domain.ErrNotFound.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestApp(t)
			_, _, err := execute(t, "logs", "resolve", tt.arg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestHashPasswordCmd(t *testing.T) {
	out, _, err := execute(t, "auth", "hash-password", "hunter2")

	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$2a$"), "expected bcrypt hash, got %q", hash)
}

func TestHashPasswordCmd_FromStdin(t *testing.T) {
	rootCmd.SetIn(strings.NewReader("from-stdin\n"))

	out, _, err := execute(t, "auth", "hash-password")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "$2a$"))
}

func TestHashPasswordCmd_EmptyStdin(t *testing.T) {
	rootCmd.SetIn(strings.NewReader(""))

	_, _, err := execute(t, "auth", "hash-password")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")

	out, _, err := execute(t, "auth", "token", "--user", "monitor", "--role", "viewer")

	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3, "expected a JWT")
}

func TestTokenCmd_BadRole(t *testing.T) {
	_, _, err := execute(t, "auth", "token", "--user", "monitor", "--role", "root")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}
