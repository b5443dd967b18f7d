package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	alerts "railguard-cloud/internal/alerts/domain"
)

const defaultAlertsTable = "alerts"

// AlertRepository is a Postgres repository for alert records. Writes are
// append-only: every anomalous reading yields a new row, never a merge.
type AlertRepository struct {
	db    *sql.DB
	table string
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db, table: defaultAlertsTable}
}

// Create inserts a new alert record.
func (r *AlertRepository) Create(ctx context.Context, record alerts.Record) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if record.ID == "" || record.NodeID == "" {
		return errors.New("alert repo: missing fields")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alerts (
	id, node_id, severity, ts, lat, lng, status, is_construction, anomaly_score, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)`,
		record.ID,
		record.NodeID,
		record.Severity,
		record.Timestamp,
		record.Lat,
		record.Lng,
		record.Status,
		record.IsConstruction,
		record.AnomalyScore,
		time.Now().UTC(),
	)
	return err
}

// ListFilter narrows List results.
type ListFilter struct {
	NodeID string
	Status string
	Limit  int
}

// List returns alerts in the order they were persisted.
func (r *AlertRepository) List(ctx context.Context, filter ListFilter) ([]alerts.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	query := `
SELECT id, node_id, severity, ts, lat, lng, status, is_construction, anomaly_score
FROM alerts`
	args := make([]any, 0, 3)
	where := ""
	if filter.NodeID != "" {
		args = append(args, filter.NodeID)
		where = " WHERE node_id = $1"
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		if where == "" {
			where = " WHERE status = $1"
		} else {
			where += " AND status = $2"
		}
	}
	query += where + " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []alerts.Record
	for rows.Next() {
		var record alerts.Record
		if err := rows.Scan(
			&record.ID,
			&record.NodeID,
			&record.Severity,
			&record.Timestamp,
			&record.Lat,
			&record.Lng,
			&record.Status,
			&record.IsConstruction,
			&record.AnomalyScore,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetByID fetches one alert record.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*alerts.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, node_id, severity, ts, lat, lng, status, is_construction, anomaly_score
FROM alerts
WHERE id = $1`, id)
	var record alerts.Record
	err := row.Scan(
		&record.ID,
		&record.NodeID,
		&record.Severity,
		&record.Timestamp,
		&record.Lat,
		&record.Lng,
		&record.Status,
		&record.IsConstruction,
		&record.AnomalyScore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, alerts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus sets the lifecycle status of an alert (operator action).
func (r *AlertRepository) UpdateStatus(ctx context.Context, id, status string) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if !alerts.ValidStatus(status) {
		return alerts.ErrInvalidStatus
	}
	result, err := r.db.ExecContext(ctx, `UPDATE alerts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetConstruction marks an alert as expected construction work.
func (r *AlertRepository) SetConstruction(ctx context.Context, id string, isConstruction bool) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `UPDATE alerts SET is_construction = $1 WHERE id = $2`, isConstruction, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alerts.ErrNotFound
	}
	return nil
}
