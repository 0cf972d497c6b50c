package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema bootstraps the tables. The income_entries → documents foreign
// key is ON DELETE CASCADE on purpose: an earlier SET NULL rule left orphaned
// entries double-counting income after document deletion.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS tax_returns (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	tax_year INT NOT NULL,
	filing_status TEXT NOT NULL DEFAULT 'single',
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	ssn TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	zip_code TEXT NOT NULL DEFAULT '',
	total_income NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_withholdings NUMERIC(14,2) NOT NULL DEFAULT 0,
	adjusted_gross_income NUMERIC(14,2) NOT NULL DEFAULT 0,
	standard_deduction NUMERIC(14,2) NOT NULL DEFAULT 0,
	itemized_deduction NUMERIC(14,2) NOT NULL DEFAULT 0,
	taxable_income NUMERIC(14,2) NOT NULL DEFAULT 0,
	tax_liability NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_credits NUMERIC(14,2) NOT NULL DEFAULT 0,
	refund_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
	amount_owed NUMERIC(14,2) NOT NULL DEFAULT 0,
	state_tax_liability NUMERIC(14,2) NOT NULL DEFAULT 0,
	state_standard_deduction NUMERIC(14,2) NOT NULL DEFAULT 0,
	state_itemized_deduction NUMERIC(14,2) NOT NULL DEFAULT 0,
	state_taxable_income NUMERIC(14,2) NOT NULL DEFAULT 0,
	state_effective_rate NUMERIC(8,4) NOT NULL DEFAULT 0,
	detected_state TEXT NOT NULL DEFAULT '',
	state_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	state_source TEXT NOT NULL DEFAULT 'UNKNOWN',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	tax_return_id TEXT NOT NULL REFERENCES tax_returns(id) ON DELETE CASCADE,
	file_name TEXT NOT NULL,
	file_type TEXT NOT NULL DEFAULT '',
	file_size BIGINT NOT NULL DEFAULT 0,
	storage_path TEXT NOT NULL,
	document_type TEXT NOT NULL,
	status TEXT NOT NULL,
	extracted_data JSONB,
	full_text TEXT NOT NULL DEFAULT '',
	is_verified BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS income_entries (
	id TEXT PRIMARY KEY,
	tax_return_id TEXT NOT NULL REFERENCES tax_returns(id) ON DELETE CASCADE,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	income_type TEXT NOT NULL,
	amount NUMERIC(14,2) NOT NULL DEFAULT 0,
	federal_tax_withheld NUMERIC(14,2) NOT NULL DEFAULT 0,
	employer_name TEXT NOT NULL DEFAULT '',
	employer_ein TEXT NOT NULL DEFAULT '',
	payer_name TEXT NOT NULL DEFAULT '',
	payer_tin TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS dependents (
	id TEXT PRIMARY KEY,
	tax_return_id TEXT NOT NULL REFERENCES tax_returns(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	relationship TEXT NOT NULL DEFAULT '',
	qualifies_child_credit BOOLEAN NOT NULL DEFAULT FALSE,
	qualifies_eic BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_documents_return ON documents(tax_return_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_income_entries_return ON income_entries(tax_return_id);
CREATE INDEX IF NOT EXISTS idx_income_entries_document ON income_entries(document_id);
CREATE INDEX IF NOT EXISTS idx_dependents_return ON dependents(tax_return_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
