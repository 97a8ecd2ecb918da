package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
	user_id    BIGINT PRIMARY KEY,
	balance    BIGINT NOT NULL CHECK (balance >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id         UUID PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	amount     BIGINT NOT NULL,
	reason     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_created
	ON ledger_entries (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS redeem_codes (
	code           TEXT PRIMARY KEY,
	amount         BIGINT NOT NULL,
	remaining_uses BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS code_redemptions (
	code        TEXT NOT NULL,
	user_id     BIGINT NOT NULL,
	redeemed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (code, user_id)
);
`

// EnsureSchema creates the ledger tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}
