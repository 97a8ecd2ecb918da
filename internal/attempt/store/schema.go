package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS verification_attempts (
	id              UUID PRIMARY KEY,
	user_id         BIGINT NOT NULL,
	profile_type    TEXT NOT NULL,
	verification_id TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	reward_code     TEXT NOT NULL,
	message         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_verification_attempts_user_created
	ON verification_attempts (user_id, created_at DESC);
`

// EnsureSchema creates the attempt history table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure attempt schema: %w", err)
	}
	return nil
}
