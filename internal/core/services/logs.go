package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driving"
)

// Ensure logService implements LogService
var _ driving.LogService = (*logService)(nil)

// logService implements the LogService interface
type logService struct {
	store  driven.LogStore
	images driven.ImageStore
	logger *slog.Logger
	now    func() time.Time
}

// LogServiceConfig holds dependencies for the log service.
type LogServiceConfig struct {
	Store  driven.LogStore
	Images driven.ImageStore
	Logger *slog.Logger
	Now    func() time.Time
}

// NewLogService creates a new LogService
func NewLogService(cfg LogServiceConfig) (driving.LogService, error) {
	if cfg.Store == nil || cfg.Images == nil {
		return nil, fmt.Errorf("%w: log store and image store are required", domain.ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &logService{
		store:  cfg.Store,
		images: cfg.Images,
		logger: logger,
		now:    now,
	}, nil
}

// Record appends one analysis. The image is written inside the store's
// transaction and removed again if the row does not commit.
func (s *logService) Record(ctx context.Context, req domain.AnalyzeRequest, resp *domain.AnalyzeResponse, responseJSON []byte) (*domain.LogRecord, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", domain.ErrLogWrite)
	}

	latency := resp.LatencyMS
	rec := &domain.LogRecord{
		Timestamp:    s.now().UTC(),
		ClientID:     req.EffectiveClientID(),
		DefectType:   resp.DefectType,
		Status:       resp.Status,
		Confidence:   resp.Confidence,
		LatencyMS:    &latency,
		ResponseJSON: string(responseJSON),
	}
	if q := strings.TrimSpace(req.Question); q != "" {
		rec.Question = &req.Question
	}

	var savedPath string
	attach := func(id int64, ts time.Time) (string, error) {
		name := domain.ImageFileName(ts, id, resp.DefectType, resp.Status)
		path, err := s.images.Save(ctx, name, req.Image)
		if err != nil {
			return "", err
		}
		savedPath = path
		return path, nil
	}

	id, err := s.store.Append(ctx, rec, attach)
	if err != nil {
		if savedPath != "" {
			if derr := s.images.Delete(ctx, savedPath); derr != nil {
				s.logger.Warn("failed to remove orphaned image", "path", savedPath, "error", derr)
			}
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrLogWrite, err)
	}

	rec.ID = id
	rec.ImagePath = savedPath
	return rec, nil
}

// Get retrieves a single record
func (s *logService) Get(ctx context.Context, id int64) (*domain.LogRecord, error) {
	return s.store.Get(ctx, id)
}

// List returns filtered records, newest first
func (s *logService) List(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, filter)
}

// Report aggregates the filtered records against the current clock
func (s *logService) Report(ctx context.Context, filter domain.LogFilter) (*domain.LogReport, error) {
	records, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return BuildReport(records, s.now()), nil
}

// Overdue lists NG records left unresolved past the deadline, oldest first
func (s *logService) Overdue(ctx context.Context) ([]*domain.LogRecord, error) {
	records, err := s.store.List(ctx, domain.LogFilter{
		Resolution: domain.ResolutionUnresolved,
		Status:     domain.StatusNG,
	})
	if err != nil {
		return nil, err
	}
	return overdueRecords(records, s.now()), nil
}

// Resolve marks a record resolved. Repeated calls refresh the timestamp.
func (s *logService) Resolve(ctx context.Context, id int64) (*domain.LogRecord, error) {
	return s.setResolved(ctx, id, true)
}

// Unresolve reopens a record and clears its resolution time
func (s *logService) Unresolve(ctx context.Context, id int64) (*domain.LogRecord, error) {
	return s.setResolved(ctx, id, false)
}

func (s *logService) setResolved(ctx context.Context, id int64, resolved bool) (*domain.LogRecord, error) {
	if err := s.store.SetResolved(ctx, id, resolved, s.now().UTC()); err != nil {
		return nil, err
	}
	s.logger.Info("log record resolution changed", "id", id, "resolved", resolved)
	return s.store.Get(ctx, id)
}

// BuildReport computes dashboard metrics over records. It does not
// depend on the input order.
func BuildReport(records []*domain.LogRecord, now time.Time) *domain.LogReport {
	report := &domain.LogReport{
		Total:          len(records),
		DefectCounts:   []domain.DefectCount{},
		ClientFailures: []domain.ClientFailureCount{},
		LatencyTrend:   []domain.LatencyPoint{},
		GeneratedAt:    now.UTC(),
	}

	defects := make(map[string]int)
	failures := make(map[string]int)
	var latencySum float64
	var latencyCount int

	for _, r := range records {
		switch r.Status {
		case domain.StatusOK:
			report.OKCount++
		case domain.StatusNG:
			report.NGCount++
			failures[labelOrUnknown(r.ClientID)]++
		}
		defects[labelOrUnknown(r.DefectType)]++
		if r.LatencyMS != nil {
			latencySum += *r.LatencyMS
			latencyCount++
		}
	}

	if checked := report.OKCount + report.NGCount; checked > 0 {
		uptime := float64(report.OKCount) / float64(checked) * 100
		report.UptimePercent = &uptime
	}
	if latencyCount > 0 {
		avg := latencySum / float64(latencyCount)
		report.AvgLatencyMS = &avg
	}

	for defect, count := range defects {
		report.DefectCounts = append(report.DefectCounts, domain.DefectCount{DefectType: defect, Count: count})
	}
	sort.Slice(report.DefectCounts, func(i, j int) bool {
		a, b := report.DefectCounts[i], report.DefectCounts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.DefectType < b.DefectType
	})

	for client, count := range failures {
		report.ClientFailures = append(report.ClientFailures, domain.ClientFailureCount{ClientID: client, Failures: count})
	}
	sort.Slice(report.ClientFailures, func(i, j int) bool {
		a, b := report.ClientFailures[i], report.ClientFailures[j]
		if a.Failures != b.Failures {
			return a.Failures > b.Failures
		}
		return a.ClientID < b.ClientID
	})

	report.Overdue = overdueRecords(records, now)

	newest := make([]*domain.LogRecord, len(records))
	copy(newest, records)
	sort.SliceStable(newest, func(i, j int) bool {
		return newest[i].Timestamp.After(newest[j].Timestamp)
	})
	report.Recent = newest[:min(len(newest), domain.ReportRecentLimit)]

	// Trend: the most recent samples, oldest first
	for i := len(newest) - 1; i >= 0; i-- {
		if newest[i].LatencyMS == nil {
			continue
		}
		report.LatencyTrend = append(report.LatencyTrend, domain.LatencyPoint{
			Timestamp: newest[i].Timestamp,
			LatencyMS: *newest[i].LatencyMS,
		})
	}
	if n := len(report.LatencyTrend); n > domain.ReportTrendLimit {
		report.LatencyTrend = report.LatencyTrend[n-domain.ReportTrendLimit:]
	}

	return report
}

// overdueRecords filters records against now, oldest first
func overdueRecords(records []*domain.LogRecord, now time.Time) []*domain.LogRecord {
	overdue := []*domain.LogRecord{}
	for _, r := range records {
		if r.IsOverdue(now) {
			overdue = append(overdue, r)
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].Timestamp.Before(overdue[j].Timestamp)
	})
	return overdue
}

func labelOrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return domain.UnknownLabel
	}
	return s
}
