package repository

// Money is NUMERIC in Postgres and TEXT in SQLite so no value ever passes
// through a float. Calendar dates are DATE / TEXT (YYYY-MM-DD).
// ledger_entries rejects UPDATE and DELETE at the storage layer.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS product_policies (
	product_code                 TEXT PRIMARY KEY,
	late_fee_type                TEXT NOT NULL,
	late_fee_rate                NUMERIC(12,6) NOT NULL DEFAULT 0,
	late_fee_fixed_amount        NUMERIC(18,2) NOT NULL DEFAULT 0,
	late_fee_frequency_days      INTEGER NOT NULL,
	late_fee_cap                 NUMERIC(18,2),
	late_fee_base                TEXT NOT NULL DEFAULT 'INSTALLMENT',
	early_settlement_rebate_rate NUMERIC(12,6)
);

CREATE TABLE IF NOT EXISTS loans (
	id                   UUID PRIMARY KEY,
	product_code         TEXT NOT NULL,
	principal_amount     NUMERIC(18,2) NOT NULL CHECK (principal_amount > 0),
	annual_interest_rate NUMERIC(9,4) NOT NULL,
	term_months          INTEGER NOT NULL CHECK (term_months > 0),
	total_amount         NUMERIC(18,2) NOT NULL,
	funding_date         DATE NOT NULL,
	status               TEXT NOT NULL,
	settlement_quote_id  UUID,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

CREATE TABLE IF NOT EXISTS repayments (
	id                  UUID PRIMARY KEY,
	loan_id             UUID NOT NULL REFERENCES loans(id),
	installment_number  INTEGER NOT NULL,
	due_date            DATE NOT NULL,
	principal_due       NUMERIC(18,2) NOT NULL,
	interest_due        NUMERIC(18,2) NOT NULL,
	fee_due             NUMERIC(18,2) NOT NULL DEFAULT 0,
	amount_paid         NUMERIC(18,2) NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	version             BIGINT NOT NULL DEFAULT 1,
	settled_by_quote_id UUID,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	UNIQUE (loan_id, installment_number)
);

CREATE TABLE IF NOT EXISTS late_fees (
	id               UUID PRIMARY KEY,
	repayment_id     UUID NOT NULL REFERENCES repayments(id),
	loan_id          UUID NOT NULL REFERENCES loans(id),
	calculation_date DATE NOT NULL,
	days_overdue     INTEGER NOT NULL,
	rate_applied     NUMERIC(12,6) NOT NULL,
	amount           NUMERIC(18,2) NOT NULL,
	status           TEXT NOT NULL,
	waived_reason    TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (repayment_id, calculation_date)
);

CREATE TABLE IF NOT EXISTS settlement_quotes (
	id             UUID PRIMARY KEY,
	loan_id        UUID NOT NULL REFERENCES loans(id),
	payoff_amount  NUMERIC(18,2) NOT NULL,
	rebate_amount  NUMERIC(18,2) NOT NULL DEFAULT 0,
	as_of_date     DATE NOT NULL,
	computed_at    TIMESTAMPTZ NOT NULL,
	valid_until    TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	decision_notes TEXT,
	decided_by     TEXT,
	decided_at     TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_settlement_quotes_pending
	ON settlement_quotes(loan_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS ledger_entries (
	id           UUID PRIMARY KEY,
	loan_id      UUID NOT NULL,
	repayment_id UUID,
	kind         TEXT NOT NULL,
	amount       NUMERIC(18,2) NOT NULL,
	memo         TEXT NOT NULL DEFAULT '',
	actor        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_loan ON ledger_entries(loan_id, created_at);

CREATE OR REPLACE FUNCTION ledger_entries_append_only() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'ledger_entries is append-only';
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS trg_ledger_entries_append_only ON ledger_entries;
CREATE TRIGGER trg_ledger_entries_append_only
	BEFORE UPDATE OR DELETE ON ledger_entries
	FOR EACH ROW EXECUTE FUNCTION ledger_entries_append_only();

CREATE TABLE IF NOT EXISTS accrual_runs (
	run_date           DATE PRIMARY KEY,
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL,
	success            BOOLEAN NOT NULL,
	incomplete         BOOLEAN NOT NULL,
	fees_calculated    INTEGER NOT NULL,
	total_fee_amount   NUMERIC(18,2) NOT NULL,
	overdue_repayments INTEGER NOT NULL,
	loans_scanned      INTEGER NOT NULL,
	loans_failed       INTEGER NOT NULL,
	loans_skipped      INTEGER NOT NULL,
	error_message      TEXT
);

CREATE TABLE IF NOT EXISTS accrual_scans (
	run_date   DATE NOT NULL,
	loan_id    UUID NOT NULL,
	outcome    TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_date, loan_id)
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS product_policies (
	product_code                 TEXT PRIMARY KEY,
	late_fee_type                TEXT NOT NULL,
	late_fee_rate                TEXT NOT NULL DEFAULT '0',
	late_fee_fixed_amount        TEXT NOT NULL DEFAULT '0',
	late_fee_frequency_days      INTEGER NOT NULL,
	late_fee_cap                 TEXT,
	late_fee_base                TEXT NOT NULL DEFAULT 'INSTALLMENT',
	early_settlement_rebate_rate TEXT
);

CREATE TABLE IF NOT EXISTS loans (
	id                   TEXT PRIMARY KEY,
	product_code         TEXT NOT NULL,
	principal_amount     TEXT NOT NULL,
	annual_interest_rate TEXT NOT NULL,
	term_months          INTEGER NOT NULL CHECK (term_months > 0),
	total_amount         TEXT NOT NULL,
	funding_date         TEXT NOT NULL,
	status               TEXT NOT NULL,
	settlement_quote_id  TEXT,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

CREATE TABLE IF NOT EXISTS repayments (
	id                  TEXT PRIMARY KEY,
	loan_id             TEXT NOT NULL REFERENCES loans(id),
	installment_number  INTEGER NOT NULL,
	due_date            TEXT NOT NULL,
	principal_due       TEXT NOT NULL,
	interest_due        TEXT NOT NULL,
	fee_due             TEXT NOT NULL DEFAULT '0',
	amount_paid         TEXT NOT NULL DEFAULT '0',
	status              TEXT NOT NULL,
	version             INTEGER NOT NULL DEFAULT 1,
	settled_by_quote_id TEXT,
	created_at          TIMESTAMP NOT NULL,
	updated_at          TIMESTAMP NOT NULL,
	UNIQUE (loan_id, installment_number)
);

CREATE TABLE IF NOT EXISTS late_fees (
	id               TEXT PRIMARY KEY,
	repayment_id     TEXT NOT NULL REFERENCES repayments(id),
	loan_id          TEXT NOT NULL REFERENCES loans(id),
	calculation_date TEXT NOT NULL,
	days_overdue     INTEGER NOT NULL,
	rate_applied     TEXT NOT NULL,
	amount           TEXT NOT NULL,
	status           TEXT NOT NULL,
	waived_reason    TEXT,
	created_at       TIMESTAMP NOT NULL,
	UNIQUE (repayment_id, calculation_date)
);

CREATE TABLE IF NOT EXISTS settlement_quotes (
	id             TEXT PRIMARY KEY,
	loan_id        TEXT NOT NULL REFERENCES loans(id),
	payoff_amount  TEXT NOT NULL,
	rebate_amount  TEXT NOT NULL DEFAULT '0',
	as_of_date     TEXT NOT NULL,
	computed_at    TIMESTAMP NOT NULL,
	valid_until    TIMESTAMP NOT NULL,
	status         TEXT NOT NULL,
	decision_notes TEXT,
	decided_by     TEXT,
	decided_at     TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_settlement_quotes_pending
	ON settlement_quotes(loan_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS ledger_entries (
	id           TEXT PRIMARY KEY,
	loan_id      TEXT NOT NULL,
	repayment_id TEXT,
	kind         TEXT NOT NULL,
	amount       TEXT NOT NULL,
	memo         TEXT NOT NULL DEFAULT '',
	actor        TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_loan ON ledger_entries(loan_id, created_at);

CREATE TRIGGER IF NOT EXISTS trg_ledger_entries_no_update
BEFORE UPDATE ON ledger_entries
BEGIN
	SELECT RAISE(ABORT, 'ledger_entries is append-only');
END;

CREATE TRIGGER IF NOT EXISTS trg_ledger_entries_no_delete
BEFORE DELETE ON ledger_entries
BEGIN
	SELECT RAISE(ABORT, 'ledger_entries is append-only');
END;

CREATE TABLE IF NOT EXISTS accrual_runs (
	run_date           TEXT PRIMARY KEY,
	started_at         TIMESTAMP NOT NULL,
	finished_at        TIMESTAMP NOT NULL,
	success            BOOLEAN NOT NULL,
	incomplete         BOOLEAN NOT NULL,
	fees_calculated    INTEGER NOT NULL,
	total_fee_amount   TEXT NOT NULL,
	overdue_repayments INTEGER NOT NULL,
	loans_scanned      INTEGER NOT NULL,
	loans_failed       INTEGER NOT NULL,
	loans_skipped      INTEGER NOT NULL,
	error_message      TEXT
);

CREATE TABLE IF NOT EXISTS accrual_scans (
	run_date   TEXT NOT NULL,
	loan_id    TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_date, loan_id)
);
`
