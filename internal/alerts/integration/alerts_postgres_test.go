package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	alerts "railguard-cloud/internal/alerts/domain"
	alertpostgres "railguard-cloud/internal/alerts/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestAlertRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "alerts") {
		t.Skip("alerts missing; run migrations")
	}

	ctx := context.Background()
	nodeID := "node-it"

	_, _ = db.ExecContext(ctx, "DELETE FROM alerts WHERE node_id = $1", nodeID)

	repo := alertpostgres.NewAlertRepository(db)
	now := time.Now()

	first := alerts.Record{
		ID:           alerts.NewAlertID(now),
		NodeID:       nodeID,
		Severity:     "HIGH",
		Timestamp:    now.UnixMilli(),
		Lat:          51.5007,
		Lng:          -0.1246,
		Status:       alerts.StatusOpen,
		AnomalyScore: -0.91,
	}
	second := alerts.Record{
		ID:        alerts.NewAlertID(now.Add(time.Millisecond)),
		NodeID:    nodeID,
		Severity:  "MEDIUM",
		Timestamp: now.UnixMilli() + 1,
		Status:    alerts.StatusOpen,
	}

	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	list, err := repo.List(ctx, alertpostgres.ListFilter{NodeID: nodeID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %s then %s", list[0].ID, list[1].ID)
	}
	if list[0].AnomalyScore != first.AnomalyScore {
		t.Fatalf("anomaly score mismatch: got=%v want=%v", list[0].AnomalyScore, first.AnomalyScore)
	}

	if err := repo.UpdateStatus(ctx, first.ID, alerts.StatusAcknowledged); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := repo.SetConstruction(ctx, first.ID, true); err != nil {
		t.Fatalf("set construction: %v", err)
	}

	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Status != alerts.StatusAcknowledged {
		t.Fatalf("expected ACKNOWLEDGED, got %s", got.Status)
	}
	if !got.IsConstruction {
		t.Fatalf("expected construction flag")
	}

	if err := repo.UpdateStatus(ctx, first.ID, "CLOSED"); !errors.Is(err, alerts.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, "missing-id", alerts.StatusResolved); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "missing-id"); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
