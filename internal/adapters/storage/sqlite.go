package storage

// sqlite.go persists the landing ledger: one row per submitted-and-raced
// transaction, kept for history/reporting per ports.LedgerStorage. Grounded
// on the teacher's sqlite.go: same schema/prune/cache shape, narrowed from
// an upsert-by-market-id cache to an append-mostly event ledger, since a
// landing signature is never re-scored the way a market opportunity is —
// the only legitimate "upsert" is a resubmission retry landing under the
// same signature with an updated outcome.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	_ "modernc.org/sqlite"

	"github.com/dnavarro/cyclearb/internal/ports"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS landings (
    signature    TEXT PRIMARY KEY,
    pair         TEXT    NOT NULL,
    amount_in    INTEGER NOT NULL DEFAULT 0,
    profit       INTEGER NOT NULL DEFAULT 0,
    lander       TEXT    NOT NULL,
    succeeded    INTEGER NOT NULL DEFAULT 0,
    submitted_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_landings_submitted ON landings(submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_landings_pair       ON landings(pair);
`

// retentionLandings bounds the ledger's disk footprint the same way the
// teacher prunes cycles/opportunities on startup.
const retentionLandings = 30 * 24 * time.Hour

// SQLiteLedger implements ports.LedgerStorage over a single-writer SQLite
// file (pure Go driver, no CGo).
type SQLiteLedger struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteLedger opens (or creates) the database at path, applies the
// schema, and prunes rows older than retentionLandings.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}

	l := &SQLiteLedger{db: db}
	l.pruneOld(context.Background())
	return l, nil
}

// SaveLanding upserts one landing record, keyed by signature so a retried
// submission that eventually lands updates its own row instead of
// duplicating it.
func (l *SQLiteLedger) SaveLanding(ctx context.Context, rec ports.LandingRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	succeeded := 0
	if rec.Succeeded {
		succeeded = 1
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO landings (signature, pair, amount_in, profit, lander, succeeded, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(signature) DO UPDATE SET
			succeeded    = excluded.succeeded,
			submitted_at = excluded.submitted_at
	`,
		rec.Signature.String(), rec.Pair, rec.AmountIn, rec.Profit, rec.Lander, succeeded, rec.SubmittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveLanding(%s): %w", rec.Signature, err)
	}
	return nil
}

// GetHistory returns landings whose submitted_at falls within [from, to],
// most recent first.
func (l *SQLiteLedger) GetHistory(ctx context.Context, from, to time.Time) ([]ports.LandingRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT signature, pair, amount_in, profit, lander, succeeded, submitted_at
		FROM landings
		WHERE submitted_at BETWEEN ? AND ?
		ORDER BY submitted_at DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var out []ports.LandingRecord
	for rows.Next() {
		var rec ports.LandingRecord
		var sigStr string
		var succeeded int
		var submittedAt string

		if err := rows.Scan(&sigStr, &rec.Pair, &rec.AmountIn, &rec.Profit, &rec.Lander, &succeeded, &submittedAt); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		sig, err := solana.SignatureFromBase58(sigStr)
		if err != nil {
			return nil, fmt.Errorf("storage.GetHistory: decode signature %q: %w", sigStr, err)
		}
		rec.Signature = sig
		rec.Succeeded = succeeded == 1
		rec.SubmittedAt, _ = time.Parse(time.RFC3339, submittedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionLandings)
	l.db.ExecContext(ctx, `DELETE FROM landings WHERE submitted_at < ?`, cutoff)
}
