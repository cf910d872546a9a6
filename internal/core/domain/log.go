package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OverdueAfter is how long an unresolved NG record may age before it is overdue
const OverdueAfter = 48 * time.Hour

// Report window sizes for the dashboard
const (
	ReportTrendLimit  = 200 // Latency samples in the trend line
	ReportRecentLimit = 200 // Rows in the recent records table
)

// UnknownLabel stands in for a missing defect type or client id in reports
const UnknownLabel = "unknown"

// LogRecord is the persisted audit row for one completed analysis
type LogRecord struct {
	ID           int64      `json:"id"`
	Timestamp    time.Time  `json:"ts"`
	ClientID     string     `json:"client_id"`
	Question     *string    `json:"question,omitempty"`
	DefectType   string     `json:"defect_type"`
	Status       Status     `json:"status"`
	Confidence   float64    `json:"confidence"`
	LatencyMS    *float64   `json:"latency_ms,omitempty"`
	ImagePath    string     `json:"image_path"`
	ResponseJSON string     `json:"response_json,omitempty"`
	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolved_ts,omitempty"`
}

// IsOverdue reports whether the record is an unresolved NG older than OverdueAfter
func (r *LogRecord) IsOverdue(now time.Time) bool {
	return r.Status == StatusNG && !r.Resolved && now.Sub(r.Timestamp) > OverdueAfter
}

// ImageFileName names the stored image for a record.
// Seconds-granularity timestamps can collide, so the record id is included.
func ImageFileName(ts time.Time, id int64, defectType string, status Status) string {
	safeTS := strings.ReplaceAll(ts.UTC().Format("2006-01-02T15:04:05"), ":", "-")
	return fmt.Sprintf("%s_%s_%s_%s.png", safeTS, strconv.FormatInt(id, 10), sanitizeFileComponent(defectType), status)
}

func sanitizeFileComponent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// ResolutionFilter selects records by resolution state
type ResolutionFilter string

const (
	ResolutionAll        ResolutionFilter = "all"
	ResolutionResolved   ResolutionFilter = "resolved"
	ResolutionUnresolved ResolutionFilter = "unresolved"
)

// Valid checks if the filter is a known value (empty means all)
func (f ResolutionFilter) Valid() bool {
	switch f {
	case "", ResolutionAll, ResolutionResolved, ResolutionUnresolved:
		return true
	}
	return false
}

// LogFilter narrows a log query. Zero values mean "no restriction".
// The time window is half-open: Since <= ts < Until.
type LogFilter struct {
	Resolution ResolutionFilter `json:"resolution,omitempty"`
	Status     Status           `json:"status,omitempty"`
	ClientID   string           `json:"client_id,omitempty"`
	Since      *time.Time       `json:"since,omitempty"`
	Until      *time.Time       `json:"until,omitempty"`
	Limit      int              `json:"limit,omitempty"`
}

// ParseFilterTime accepts RFC 3339 timestamps or bare YYYY-MM-DD dates,
// both normalised to UTC
func ParseFilterTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not RFC 3339 or YYYY-MM-DD", ErrInvalidInput, v)
	}
	return t, nil
}

// Validate checks filter values
func (f LogFilter) Validate() error {
	if !f.Resolution.Valid() {
		return fmt.Errorf("%w: unknown resolution filter %q", ErrInvalidInput, f.Resolution)
	}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	if f.Since != nil && f.Until != nil && !f.Since.Before(*f.Until) {
		return fmt.Errorf("%w: since must be before until", ErrInvalidInput)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidInput)
	}
	return nil
}

// Matches applies the filter to a single record
func (f LogFilter) Matches(r *LogRecord) bool {
	switch f.Resolution {
	case ResolutionResolved:
		if !r.Resolved {
			return false
		}
	case ResolutionUnresolved:
		if r.Resolved {
			return false
		}
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ClientID != "" && r.ClientID != f.ClientID {
		return false
	}
	if f.Since != nil && r.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !r.Timestamp.Before(*f.Until) {
		return false
	}
	return true
}

// DefectCount is one bar of the defect-type histogram
type DefectCount struct {
	DefectType string `json:"defect_type"`
	Count      int    `json:"count"`
}

// ClientFailureCount is the number of NG results reported by one client
type ClientFailureCount struct {
	ClientID string `json:"client_id"`
	Failures int    `json:"failures"`
}

// LatencyPoint is one sample of the latency trend
type LatencyPoint struct {
	Timestamp time.Time `json:"ts"`
	LatencyMS float64   `json:"latency_ms"`
}

// LogReport aggregates a filtered set of log records for the dashboard
type LogReport struct {
	Total          int                  `json:"total"`
	OKCount        int                  `json:"ok_count"`
	NGCount        int                  `json:"ng_count"`
	UptimePercent  *float64             `json:"uptime_percent"`
	AvgLatencyMS   *float64             `json:"avg_latency_ms"`
	DefectCounts   []DefectCount        `json:"defect_counts"`
	ClientFailures []ClientFailureCount `json:"client_failures"`
	Overdue        []*LogRecord         `json:"overdue"`
	LatencyTrend   []LatencyPoint       `json:"latency_trend"`
	Recent         []*LogRecord         `json:"recent"`
	GeneratedAt    time.Time            `json:"generated_at"`
}
