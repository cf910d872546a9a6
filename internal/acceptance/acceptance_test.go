package acceptance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/ai"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driving"
	"github.com/custodia-labs/maintenance-agent/internal/core/services"
	"github.com/custodia-labs/maintenance-agent/internal/postprocessors"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "maintenance-agent",
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// world is the state shared by the steps of one scenario
type world struct {
	dir    string
	now    time.Time
	logger *slog.Logger

	page     string
	chunks   []driven.Chunk
	chunkErr error

	classification domain.ClassificationResult
	docs           []domain.SourceDocument
	resp           *domain.AnalyzeResponse
	analyzeErr     error

	store      *sqlite.LogStore
	logs       driving.LogService
	lastRecord *domain.LogRecord
	report     *domain.LogReport
	overdue    []*domain.LogRecord
}

func initializeScenario(sc *godog.ScenarioContext) {
	w := &world{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, w.setUp(ctx)
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		w.tearDown()
		return ctx, nil
	})

	// Chunking
	sc.Step(`^a manual page of (\d+) characters$`, w.aManualPageOf)
	sc.Step(`^the page is chunked with size (\d+) and overlap (\d+)$`, w.thePageIsChunked)
	sc.Step(`^there are (\d+) chunks$`, w.thereAreChunks)
	sc.Step(`^chunk (\d+) covers characters (\d+) to (\d+)$`, w.chunkCovers)
	sc.Step(`^the chunk configuration is rejected$`, w.theChunkConfigurationIsRejected)

	// Diagnosis
	sc.Step(`^the classifier reports "([^"]*)" with status "([^"]*)" and confidence ([\d.]+)$`, w.theClassifierReports)
	sc.Step(`^the manual index is empty$`, w.theManualIndexIsEmpty)
	sc.Step(`^the manuals contain:$`, w.theManualsContain)
	sc.Step(`^an inspection image is analyzed for client "([^"]*)"$`, w.anImageIsAnalyzed)
	sc.Step(`^a corrupt image is analyzed$`, w.aCorruptImageIsAnalyzed)
	sc.Step(`^the status is "([^"]*)"$`, w.theStatusIs)
	sc.Step(`^no manual sources are returned$`, w.noManualSources)
	sc.Step(`^the first source is "([^"]*)"$`, w.theFirstSourceIs)
	sc.Step(`^the recommended action tells the operator to consult a senior engineer$`, w.theActionEscalates)
	sc.Step(`^the recommended action starts with "([^"]*)"$`, w.theActionStartsWith)
	sc.Step(`^the request is rejected as an invalid image$`, w.rejectedAsInvalidImage)
	sc.Step(`^(\d+) diagnos(?:is|es) (?:is|are) logged(?: for client "([^"]*)")?$`, w.diagnosesAreLogged)

	// Dashboard
	sc.Step(`^(\d+) "([^"]*)" diagnoses and (\d+) "([^"]*)" diagnoses were logged$`, w.diagnosesWereLogged)
	sc.Step(`^an? "([^"]*)" diagnosis logged (\d+) hours ago$`, w.aDiagnosisLoggedHoursAgo)
	sc.Step(`^the dashboard report is generated$`, w.theReportIsGenerated)
	sc.Step(`^the uptime is ([\d.]+) percent$`, w.theUptimeIs)
	sc.Step(`^the uptime is not available$`, w.theUptimeIsNotAvailable)
	sc.Step(`^there are (\d+) critical defects$`, w.thereAreCriticalDefects)
	sc.Step(`^the overdue list is requested$`, w.theOverdueListIsRequested)
	sc.Step(`^(\d+) diagnos(?:is|es) (?:is|are) overdue$`, w.diagnosesAreOverdue)
	sc.Step(`^the last diagnosis is resolved$`, w.theLastDiagnosisIsResolved)
	sc.Step(`^the last diagnosis is reopened$`, w.theLastDiagnosisIsReopened)
}

func (w *world) setUp(ctx context.Context) error {
	*w = world{
		now:    time.Date(2025, 11, 27, 12, 0, 0, 0, time.UTC),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	dir, err := os.MkdirTemp("", "maintenance-agent-acceptance-")
	if err != nil {
		return err
	}
	w.dir = dir

	w.store, err = sqlite.Open(ctx, filepath.Join(dir, "logs.db"), w.logger)
	if err != nil {
		return err
	}
	images, err := files.NewImageStore(filepath.Join(dir, "images"))
	if err != nil {
		return err
	}
	w.logs, err = services.NewLogService(services.LogServiceConfig{
		Store:  w.store,
		Images: images,
		Logger: w.logger,
		Now:    func() time.Time { return w.now },
	})
	return err
}

func (w *world) tearDown() {
	if w.store != nil {
		_ = w.store.Close()
	}
	if w.dir != "" {
		_ = os.RemoveAll(w.dir)
	}
}

func pngImage() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2)))
	return buf.Bytes()
}

// ===== Chunking =====

func (w *world) aManualPageOf(n int) error {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	w.page = b.String()
	return nil
}

func (w *world) thePageIsChunked(size, overlap int) error {
	pipeline, err := postprocessors.DefaultPipeline(postprocessors.ChunkConfig{Size: size, Overlap: overlap})
	if err != nil {
		w.chunkErr = err
		return nil
	}
	w.chunks = pipeline.Process(w.page)
	return nil
}

func (w *world) thereAreChunks(n int) error {
	if w.chunkErr != nil {
		return w.chunkErr
	}
	if len(w.chunks) != n {
		return fmt.Errorf("expected %d chunks, got %d", n, len(w.chunks))
	}
	return nil
}

func (w *world) chunkCovers(idx, start, end int) error {
	if idx < 1 || idx > len(w.chunks) {
		return fmt.Errorf("no chunk %d among %d", idx, len(w.chunks))
	}
	c := w.chunks[idx-1]
	if c.StartOffset != start || c.EndOffset != end {
		return fmt.Errorf("chunk %d covers [%d,%d), expected [%d,%d)", idx, c.StartOffset, c.EndOffset, start, end)
	}
	if want := w.page[start:end]; c.Content != want {
		return fmt.Errorf("chunk %d content does not match page[%d:%d]", idx, start, end)
	}
	return nil
}

func (w *world) theChunkConfigurationIsRejected() error {
	if !errors.Is(w.chunkErr, domain.ErrInvalidChunkConfig) {
		return fmt.Errorf("expected ErrInvalidChunkConfig, got %v", w.chunkErr)
	}
	return nil
}

// ===== Diagnosis =====

func (w *world) theClassifierReports(defect, status string, confidence float64) error {
	s, err := domain.ParseStatus(status)
	if err != nil {
		return err
	}
	w.classification = domain.ClassificationResult{DefectType: defect, Status: s, Confidence: confidence}
	return nil
}

func (w *world) theManualIndexIsEmpty() error {
	w.docs = nil
	return nil
}

func (w *world) theManualsContain(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("row %d: expected manual and text", i)
		}
		w.docs = append(w.docs, domain.SourceDocument{
			Name:  row.Cells[0].Value,
			Pages: []string{row.Cells[1].Value},
		})
	}
	return nil
}

// analysis wires the pipeline over an index built from the scenario's manuals
func (w *world) analysis(ctx context.Context) (driving.AnalysisService, error) {
	classifier, err := ai.NewFixedClassifier(w.classification)
	if err != nil {
		return nil, err
	}
	pipeline, err := postprocessors.DefaultPipeline(postprocessors.DefaultChunkConfig())
	if err != nil {
		return nil, err
	}
	index, err := services.NewManualIndex(services.ManualIndexConfig{
		Embedder: ai.NewLocalEmbedding(384),
		Pipeline: pipeline,
		Logger:   w.logger,
	})
	if err != nil {
		return nil, err
	}
	if len(w.docs) > 0 {
		snap, err := index.Build(ctx, w.docs)
		if err != nil {
			return nil, err
		}
		if err := index.Load(snap); err != nil {
			return nil, err
		}
	}

	return services.NewAnalysisService(services.AnalysisConfig{
		Classifier: classifier,
		Index:      index,
		Logs:       w.logs,
		Logger:     w.logger,
	})
}

func (w *world) analyze(ctx context.Context, req domain.AnalyzeRequest) error {
	svc, err := w.analysis(ctx)
	if err != nil {
		return err
	}
	w.resp, w.analyzeErr = svc.Analyze(ctx, req)
	return nil
}

func (w *world) anImageIsAnalyzed(ctx context.Context, client string) error {
	if err := w.analyze(ctx, domain.AnalyzeRequest{Image: pngImage(), ClientID: client}); err != nil {
		return err
	}
	return w.analyzeErr
}

func (w *world) aCorruptImageIsAnalyzed(ctx context.Context) error {
	return w.analyze(ctx, domain.AnalyzeRequest{Image: []byte("definitely not an image")})
}

func (w *world) theStatusIs(status string) error {
	if w.resp == nil {
		return fmt.Errorf("no response: %v", w.analyzeErr)
	}
	if string(w.resp.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, w.resp.Status)
	}
	return nil
}

func (w *world) noManualSources() error {
	if len(w.resp.RAGSources) != 0 {
		return fmt.Errorf("expected no sources, got %d", len(w.resp.RAGSources))
	}
	return nil
}

func (w *world) theFirstSourceIs(name string) error {
	if len(w.resp.RAGSources) == 0 {
		return errors.New("no sources returned")
	}
	if got := w.resp.RAGSources[0].ManualName; got != name {
		return fmt.Errorf("expected first source %s, got %s", name, got)
	}
	return nil
}

func (w *world) theActionEscalates() error {
	if !strings.Contains(w.resp.ActionRecommended, "consult senior engineer") {
		return fmt.Errorf("action does not escalate: %q", w.resp.ActionRecommended)
	}
	return nil
}

func (w *world) theActionStartsWith(prefix string) error {
	if !strings.HasPrefix(w.resp.ActionRecommended, prefix) {
		return fmt.Errorf("action %q does not start with %q", w.resp.ActionRecommended, prefix)
	}
	return nil
}

func (w *world) rejectedAsInvalidImage() error {
	if !errors.Is(w.analyzeErr, domain.ErrInvalidImage) {
		return fmt.Errorf("expected ErrInvalidImage, got %v", w.analyzeErr)
	}
	if w.resp != nil {
		return errors.New("a rejected request must not return a response")
	}
	return nil
}

func (w *world) diagnosesAreLogged(ctx context.Context, n int, client string) error {
	records, err := w.logs.List(ctx, domain.LogFilter{ClientID: client})
	if err != nil {
		return err
	}
	if len(records) != n {
		return fmt.Errorf("expected %d logged diagnoses, got %d", n, len(records))
	}
	return nil
}

// ===== Dashboard =====

func (w *world) record(ctx context.Context, status domain.Status) error {
	defect := domain.NormalDefect
	if status == domain.StatusNG {
		defect = "oil_leak"
	}
	resp := &domain.AnalyzeResponse{
		Status:     status,
		DefectType: defect,
		Confidence: 0.9,
		RAGSources: []domain.RetrievedSource{},
		LatencyMS:  120,
	}
	rec, err := w.logs.Record(ctx, domain.AnalyzeRequest{Image: pngImage()}, resp, []byte("{}"))
	if err != nil {
		return err
	}
	w.lastRecord = rec
	return nil
}

func (w *world) diagnosesWereLogged(ctx context.Context, n1 int, s1 string, n2 int, s2 string) error {
	for _, batch := range []struct {
		n      int
		status string
	}{{n1, s1}, {n2, s2}} {
		status, err := domain.ParseStatus(batch.status)
		if err != nil {
			return err
		}
		for i := 0; i < batch.n; i++ {
			if err := w.record(ctx, status); err != nil {
				return err
			}
			w.now = w.now.Add(time.Second)
		}
	}
	return nil
}

func (w *world) aDiagnosisLoggedHoursAgo(ctx context.Context, status string, hours int) error {
	s, err := domain.ParseStatus(status)
	if err != nil {
		return err
	}
	current := w.now
	w.now = current.Add(-time.Duration(hours) * time.Hour)
	defer func() { w.now = current }()
	return w.record(ctx, s)
}

func (w *world) theReportIsGenerated(ctx context.Context) error {
	report, err := w.logs.Report(ctx, domain.LogFilter{})
	if err != nil {
		return err
	}
	w.report = report
	return nil
}

func (w *world) theUptimeIs(expected string) error {
	want, err := strconv.ParseFloat(expected, 64)
	if err != nil {
		return err
	}
	if w.report.UptimePercent == nil {
		return errors.New("uptime is not available")
	}
	if got := *w.report.UptimePercent; math.Abs(got-want) > 1e-9 {
		return fmt.Errorf("expected uptime %.1f%%, got %v", want, got)
	}
	return nil
}

func (w *world) theUptimeIsNotAvailable() error {
	if w.report.UptimePercent != nil {
		return fmt.Errorf("expected no uptime, got %v", *w.report.UptimePercent)
	}
	return nil
}

func (w *world) thereAreCriticalDefects(n int) error {
	if w.report.NGCount != n {
		return fmt.Errorf("expected %d critical defects, got %d", n, w.report.NGCount)
	}
	return nil
}

func (w *world) theOverdueListIsRequested(ctx context.Context) error {
	records, err := w.logs.Overdue(ctx)
	if err != nil {
		return err
	}
	w.overdue = records
	return nil
}

func (w *world) diagnosesAreOverdue(n int) error {
	if len(w.overdue) != n {
		return fmt.Errorf("expected %d overdue diagnoses, got %d", n, len(w.overdue))
	}
	return nil
}

func (w *world) theLastDiagnosisIsResolved(ctx context.Context) error {
	rec, err := w.logs.Resolve(ctx, w.lastRecord.ID)
	if err != nil {
		return err
	}
	if !rec.Resolved || rec.ResolvedAt == nil {
		return errors.New("record was not marked resolved")
	}
	return nil
}

func (w *world) theLastDiagnosisIsReopened(ctx context.Context) error {
	rec, err := w.logs.Unresolve(ctx, w.lastRecord.ID)
	if err != nil {
		return err
	}
	if rec.Resolved || rec.ResolvedAt != nil {
		return errors.New("record is still resolved")
	}
	return nil
}
