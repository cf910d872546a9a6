package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.LogStore = (*LogStore)(nil)

// LogStore implements driven.LogStore using PostgreSQL
type LogStore struct {
	db *DB
}

// NewLogStore creates a new LogStore
func NewLogStore(db *DB) *LogStore {
	return &LogStore{db: db}
}

// Append inserts a record and runs attach inside the same transaction
func (s *LogStore) Append(ctx context.Context, rec *domain.LogRecord, attach driven.AttachFunc) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", domain.ErrInvalidInput)
	}

	ts := rec.Timestamp.UTC()
	var id int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO logs (ts, client_id, question, defect_type, status, confidence,
				latency_ms, image_path, response_json, resolved, resolved_ts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, NULL)
			RETURNING id`,
			ts,
			rec.ClientID,
			NullString(rec.Question),
			rec.DefectType,
			string(rec.Status),
			rec.Confidence,
			NullFloat(rec.LatencyMS),
			rec.ImagePath,
			rec.ResponseJSON,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}

		if attach == nil {
			return nil
		}
		path, err := attach(id, ts)
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE logs SET image_path = $1 WHERE id = $2", path, id); err != nil {
			return fmt.Errorf("set image path: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetResolved updates the resolution fields of one record
func (s *LogStore) SetResolved(ctx context.Context, id int64, resolved bool, resolvedAt time.Time) error {
	var at *time.Time
	if resolved {
		utc := resolvedAt.UTC()
		at = &utc
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE logs SET resolved = $1, resolved_ts = $2 WHERE id = $3", resolved, NullTime(at), id)
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
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}
	return rec, nil
}

// List returns matching records, newest first
func (s *LogStore) List(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var records []*domain.LogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// buildListQuery renders the filter as SQL with numbered placeholders
func buildListQuery(filter domain.LogFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch filter.Resolution {
	case domain.ResolutionResolved:
		where = append(where, "resolved")
	case domain.ResolutionUnresolved:
		where = append(where, "NOT resolved")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.ClientID != "" {
		where = append(where, "client_id = "+arg(filter.ClientID))
	}
	if filter.Since != nil {
		where = append(where, "ts >= "+arg(filter.Since.UTC()))
	}
	if filter.Until != nil {
		where = append(where, "ts < "+arg(filter.Until.UTC()))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	return query, args
}

// Ping checks the database connection
func (s *LogStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the underlying pool
func (s *LogStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc rowScanner) (*domain.LogRecord, error) {
	var (
		rec        domain.LogRecord
		question   sql.NullString
		defectType sql.NullString
		status     sql.NullString
		confidence sql.NullFloat64
		latency    sql.NullFloat64
		imagePath  sql.NullString
		response   sql.NullString
		resolvedTS sql.NullTime
	)
	if err := sc.Scan(&rec.ID, &rec.Timestamp, &rec.ClientID, &question, &defectType, &status,
		&confidence, &latency, &imagePath, &response, &rec.Resolved, &resolvedTS); err != nil {
		return nil, err
	}

	rec.Timestamp = rec.Timestamp.UTC()
	rec.Question = StringPtr(question)
	rec.DefectType = defectType.String
	rec.Status = domain.Status(status.String)
	rec.Confidence = confidence.Float64
	rec.LatencyMS = FloatPtr(latency)
	rec.ImagePath = imagePath.String
	rec.ResponseJSON = response.String
	rec.ResolvedAt = TimePtr(resolvedTS)
	return &rec, nil
}
