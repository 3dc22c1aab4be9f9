package audit

import (
	"context"
	"database/sql"

	"voicedash/pkg/utils"
)

// PostgresRepo persists audit events. INSERT-only by policy; the table gets
// no UPDATE or DELETE from this service.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return utils.ExecAll(ctx, tx,
			`CREATE TABLE IF NOT EXISTS audit_events (
    id           UUID PRIMARY KEY,
    type         TEXT NOT NULL,
    actor_email  TEXT NOT NULL,
    actor_role   TEXT,
    ip_address   TEXT,
    target_email TEXT,
    assistant_id TEXT,
    message      TEXT,
    created_at   TIMESTAMPTZ NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_events_created_at
    ON audit_events (created_at)`,
		)
	})
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, actor_email, actor_role, ip_address, target_email, assistant_id, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ActorEmail,
		e.ActorRole,
		e.IPAddress,
		e.TargetEmail,
		e.AssistantID,
		e.Message,
		e.CreatedAt,
	)
	return err
}
