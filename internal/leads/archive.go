package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Archive mirrors CRM registrations into the relational database so lead
// progression survives CRM outages and is queryable for reporting.
type Archive struct {
	pool db
}

// NewArchive initializes an archive backed by a pgx pool.
func NewArchive(pool db) *Archive {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &Archive{pool: pool}
}

// Record upserts the latest snapshot of a lead at the given stage.
func (a *Archive) Record(ctx context.Context, leadID string, stage Stage, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("leads: marshal archive payload: %w", err)
	}

	query := `
		INSERT INTO lead_records (lead_id, stage, payload, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (lead_id)
		DO UPDATE SET stage = $2, payload = $3, updated_at = now()
	`
	if _, err := a.pool.Exec(ctx, query, leadID, string(stage), data); err != nil {
		return fmt.Errorf("leads: archive upsert failed: %w", err)
	}
	return nil
}

// ArchivedLead is a stored lead snapshot.
type ArchivedLead struct {
	LeadID    string          `json:"lead_id"`
	Stage     Stage           `json:"stage"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Get fetches a lead snapshot by ID.
func (a *Archive) Get(ctx context.Context, leadID string) (*ArchivedLead, error) {
	query := `
		SELECT lead_id, stage, payload, created_at, updated_at
		FROM lead_records
		WHERE lead_id = $1
	`
	row := a.pool.QueryRow(ctx, query, leadID)
	var rec ArchivedLead
	if err := row.Scan(&rec.LeadID, &rec.Stage, &rec.Payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: archive select failed: %w", err)
	}
	return &rec, nil
}

// ListByStage returns lead snapshots at the given stage, newest first.
func (a *Archive) ListByStage(ctx context.Context, stage Stage, limit int) ([]*ArchivedLead, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
		SELECT lead_id, stage, payload, created_at, updated_at
		FROM lead_records
		WHERE stage = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := a.pool.Query(ctx, query, string(stage), limit)
	if err != nil {
		return nil, fmt.Errorf("leads: archive list failed: %w", err)
	}
	defer rows.Close()

	var out []*ArchivedLead
	for rows.Next() {
		var rec ArchivedLead
		if err := rows.Scan(&rec.LeadID, &rec.Stage, &rec.Payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("leads: archive scan failed: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
