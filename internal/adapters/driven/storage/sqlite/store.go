package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Ensure LogStore implements driven.LogStore
var _ driven.LogStore = (*LogStore)(nil)

// tsLayout is the stored timestamp format: UTC, no zone suffix, fixed
// microsecond precision so text order equals time order.
const tsLayout = "2006-01-02T15:04:05.000000"

// DefaultPath is used when no database path is configured
const DefaultPath = "maintenance_logs.db"

// LogStore is the SQLite-backed analysis log
type LogStore struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
	logger  *slog.Logger
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*LogStore, error) {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// Open database with WAL mode so reports never wait on the writer
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &LogStore{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_log_store"),
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *LogStore) Path() string {
	return s.path
}

// Append inserts a record, runs attach with the new id, and commits only if
// attach succeeds.
func (s *LogStore) Append(ctx context.Context, rec *domain.LogRecord, attach driven.AttachFunc) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", domain.ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := rec.Timestamp.UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO logs (ts, client_id, question, defect_type, status, confidence,
			latency_ms, image_path, response_json, resolved, resolved_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)`,
		ts.Format(tsLayout),
		rec.ClientID,
		nullString(rec.Question),
		rec.DefectType,
		string(rec.Status),
		rec.Confidence,
		nullFloat(rec.LatencyMS),
		rec.ImagePath,
		rec.ResponseJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read log id: %w", err)
	}

	if attach != nil {
		path, err := attach(id, ts)
		if err != nil {
			return 0, fmt.Errorf("attach: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE logs SET image_path = ? WHERE id = ?", path, id); err != nil {
			return 0, fmt.Errorf("set image path: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// SetResolved updates the resolution fields of one record
func (s *LogStore) SetResolved(ctx context.Context, id int64, resolved bool, resolvedAt time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var at sql.NullString
	if resolved {
		at = sql.NullString{String: resolvedAt.UTC().Format(tsLayout), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE logs SET resolved = ?, resolved_ts = ? WHERE id = ?",
		boolToInt(resolved), at, id)
	if err != nil {
		return fmt.Errorf("update resolution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update resolution: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const selectColumns = `SELECT id, ts, client_id, question, defect_type, status, confidence,
	latency_ms, image_path, response_json, resolved, resolved_ts FROM logs`

// Get retrieves a record by id
func (s *LogStore) Get(ctx context.Context, id int64) (*domain.LogRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns matching records, newest first
func (s *LogStore) List(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	switch filter.Resolution {
	case domain.ResolutionResolved:
		where = append(where, "resolved = 1")
	case domain.ResolutionUnresolved:
		where = append(where, "(resolved = 0 OR resolved IS NULL)")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.Since != nil {
		where = append(where, "ts >= ?")
		args = append(args, filter.Since.UTC().Format(tsLayout))
	}
	if filter.Until != nil {
		where = append(where, "ts < ?")
		args = append(args, filter.Until.UTC().Format(tsLayout))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var records []*domain.LogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping checks the database connection
func (s *LogStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *LogStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*domain.LogRecord, error) {
	var (
		rec        domain.LogRecord
		ts         sql.NullString
		clientID   sql.NullString
		question   sql.NullString
		defectType sql.NullString
		status     sql.NullString
		confidence sql.NullFloat64
		latency    sql.NullFloat64
		imagePath  sql.NullString
		response   sql.NullString
		resolved   sql.NullInt64
		resolvedTS sql.NullString
	)
	if err := sc.Scan(&rec.ID, &ts, &clientID, &question, &defectType, &status, &confidence,
		&latency, &imagePath, &response, &resolved, &resolvedTS); err != nil {
		return nil, err
	}

	parsed, err := parseTS(ts.String)
	if err != nil {
		return nil, fmt.Errorf("log %d: %w", rec.ID, err)
	}
	rec.Timestamp = parsed
	rec.ClientID = clientID.String
	if question.Valid {
		q := question.String
		rec.Question = &q
	}
	rec.DefectType = defectType.String
	rec.Status = domain.Status(status.String)
	rec.Confidence = confidence.Float64
	if latency.Valid {
		l := latency.Float64
		rec.LatencyMS = &l
	}
	rec.ImagePath = imagePath.String
	rec.ResponseJSON = response.String
	rec.Resolved = resolved.Valid && resolved.Int64 != 0
	if resolvedTS.Valid && resolvedTS.String != "" {
		at, err := parseTS(resolvedTS.String)
		if err != nil {
			return nil, fmt.Errorf("log %d resolved_ts: %w", rec.ID, err)
		}
		rec.ResolvedAt = &at
	}
	return &rec, nil
}

// parseTS reads both the stored layout and RFC 3339 values written by
// other tools. Zone-less values are UTC.
func parseTS(v string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", v, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", v)
	}
	return t.UTC(), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
