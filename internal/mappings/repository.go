package mappings

import (
	"context"
	"database/sql"

	"voicedash/pkg/utils"
)

// PostgresRepo persists the permission relation.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureSchema creates the mapping table if it does not exist. The unique
// pair constraint is what makes Insert idempotent.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return utils.ExecAll(ctx, tx,
			`CREATE TABLE IF NOT EXISTS user_assistant_mappings (
    id           UUID PRIMARY KEY,
    user_email   TEXT NOT NULL,
    assistant_id TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (user_email, assistant_id)
)`,
			`CREATE INDEX IF NOT EXISTS idx_user_assistant_mappings_email
    ON user_assistant_mappings (user_email)`,
		)
	})
}

func (r *PostgresRepo) ListAll(ctx context.Context) ([]Mapping, error) {
	const q = `
SELECT id, user_email, assistant_id, created_at
FROM user_assistant_mappings
ORDER BY user_email, assistant_id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *PostgresRepo) ListByEmail(ctx context.Context, email string) ([]Mapping, error) {
	const q = `
SELECT id, user_email, assistant_id, created_at
FROM user_assistant_mappings
WHERE user_email = $1
ORDER BY assistant_id
`
	rows, err := r.db.QueryContext(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *PostgresRepo) Insert(ctx context.Context, m Mapping) error {
	// The unique constraint makes Insert idempotent on the pair.
	const q = `
INSERT INTO user_assistant_mappings (id, user_email, assistant_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_email, assistant_id) DO NOTHING
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.UserEmail, m.AssistantID, m.CreatedAt)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, email, assistantID string) error {
	const q = `
DELETE FROM user_assistant_mappings
WHERE user_email = $1 AND assistant_id = $2
`
	_, err := r.db.ExecContext(ctx, q, email, assistantID)
	return err
}

func scanMappings(rows *sql.Rows) ([]Mapping, error) {
	var out []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.ID, &m.UserEmail, &m.AssistantID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
