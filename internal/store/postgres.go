package store

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

// AlertRecord is one persisted alert decision.
type AlertRecord struct {
	ID                 string    `json:"id"`
	DriverID           string    `json:"driver_id"`
	DriverName         string    `json:"driver_name"`
	ConsecutivePCHours float64   `json:"consecutive_pc_hours"`
	PCStartTime        time.Time `json:"pc_start_time"`
	ThresholdHours     float64   `json:"threshold_hours"`
	ExceedsThreshold   bool      `json:"exceeds_threshold"`
	Anomalous          bool      `json:"anomalous"`
	CreatedAt          time.Time `json:"created_at"`
}

// HistoryRepository is a Postgres repository for delivered alert decisions.
// The alert id is derived from (driver id, pc start), so re-running a batch
// upserts instead of duplicating rows.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository constructs a repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// EnsureSchema creates the history table when missing.
func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("alert history repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS pc_alert_history (
	id TEXT PRIMARY KEY,
	driver_id TEXT NOT NULL,
	driver_name TEXT NOT NULL DEFAULT '',
	consecutive_pc_hours DOUBLE PRECISION NOT NULL,
	pc_start_time TIMESTAMPTZ,
	threshold_hours DOUBLE PRECISION NOT NULL,
	exceeds_threshold BOOLEAN NOT NULL,
	anomalous BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
)`)
	return err
}

// Insert stores one decision. Conflicting episodes update the measured
// duration instead of inserting a second row.
func (r *HistoryRepository) Insert(ctx context.Context, decision analysis.AlertDecision, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alert history repo: nil db")
	}
	if decision.DriverID == "" {
		return errors.New("alert history repo: empty driver id")
	}
	var pcStart sql.NullTime
	if !decision.PCStartTime.IsZero() {
		pcStart = sql.NullTime{Time: decision.PCStartTime.UTC(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pc_alert_history (
	id, driver_id, driver_name, consecutive_pc_hours, pc_start_time,
	threshold_hours, exceeds_threshold, anomalous, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	consecutive_pc_hours = EXCLUDED.consecutive_pc_hours,
	exceeds_threshold = EXCLUDED.exceeds_threshold,
	created_at = EXCLUDED.created_at`,
		buildAlertID(decision), decision.DriverID, decision.DriverName,
		decision.ConsecutivePCHours, pcStart, decision.ThresholdHours,
		decision.ExceedsThreshold, decision.Anomalous, at.UTC(),
	)
	return err
}

// ListRecent returns up to limit alerts, newest first.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]AlertRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert history repo: nil db")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, driver_id, driver_name, consecutive_pc_hours, pc_start_time,
	threshold_hours, exceeds_threshold, anomalous, created_at
FROM pc_alert_history
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlertRecords(rows)
}

// ListBetween returns alerts created in [from, to), oldest first.
func (r *HistoryRepository) ListBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert history repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, driver_id, driver_name, consecutive_pc_hours, pc_start_time,
	threshold_hours, exceeds_threshold, anomalous, created_at
FROM pc_alert_history
WHERE created_at >= $1 AND created_at < $2
ORDER BY created_at ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlertRecords(rows)
}

func scanAlertRecords(rows *sql.Rows) ([]AlertRecord, error) {
	var records []AlertRecord
	for rows.Next() {
		var record AlertRecord
		var pcStart sql.NullTime
		if err := rows.Scan(
			&record.ID, &record.DriverID, &record.DriverName,
			&record.ConsecutivePCHours, &pcStart, &record.ThresholdHours,
			&record.ExceedsThreshold, &record.Anomalous, &record.CreatedAt,
		); err != nil {
			return nil, err
		}
		if pcStart.Valid {
			record.PCStartTime = pcStart.Time.UTC()
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func buildAlertID(decision analysis.AlertDecision) string {
	key := decision.DriverID + "|" + decision.PCStartTime.UTC().Format(time.RFC3339Nano)
	sum := sha1.Sum([]byte(key))
	return "pcalert-" + hex.EncodeToString(sum[:8])
}
