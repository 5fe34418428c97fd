package sqlite

// Schema bootstraps a local ledger database. It mirrors the production
// MySQL/PostgreSQL schema in sqlite dialect; the unique (broker_id, date)
// index backs the idempotent snapshot upsert.
const Schema = `
CREATE TABLE IF NOT EXISTS broker_account (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	account_number   TEXT,
	account_type     TEXT NOT NULL DEFAULT 'PEA',
	currency         TEXT NOT NULL DEFAULT 'EUR',
	has_cash_account INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cash_account (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	broker_account_id INTEGER NOT NULL REFERENCES broker_account(id),
	name              TEXT,
	initial_balance   TEXT NOT NULL DEFAULT '0',
	current_balance   TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS instrument (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol   TEXT NOT NULL UNIQUE,
	isin     TEXT,
	label    TEXT,
	type     TEXT NOT NULL DEFAULT 'STOCK',
	currency TEXT NOT NULL DEFAULT 'EUR',
	status   TEXT NOT NULL DEFAULT 'ACTIVE'
);

CREATE TABLE IF NOT EXISTS order_transaction (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	broker_id     INTEGER NOT NULL REFERENCES broker_account(id),
	instrument_id INTEGER NOT NULL REFERENCES instrument(id),
	order_type    TEXT NOT NULL,
	quantity      TEXT NOT NULL,
	price         TEXT NOT NULL,
	fees          TEXT NOT NULL DEFAULT '0',
	total_cost    TEXT NOT NULL,
	trade_date    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cash_transaction (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	broker_account_id INTEGER NOT NULL REFERENCES broker_account(id),
	type              TEXT NOT NULL,
	amount            TEXT NOT NULL,
	date              DATETIME NOT NULL,
	reference_id      INTEGER,
	comment           TEXT
);

CREATE TABLE IF NOT EXISTS dividend (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	broker_id      INTEGER NOT NULL REFERENCES broker_account(id),
	instrument_id  INTEGER NOT NULL REFERENCES instrument(id),
	amount         TEXT NOT NULL,
	gross_amount   TEXT,
	taxes_withheld TEXT NOT NULL DEFAULT '0',
	payment_date   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_price (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	instrument_id INTEGER NOT NULL REFERENCES instrument(id),
	date          DATETIME NOT NULL,
	close_price   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolio_snapshot (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	broker_id          INTEGER NOT NULL REFERENCES broker_account(id),
	date               DATETIME NOT NULL,
	total_value        TEXT NOT NULL,
	invested_amount    TEXT NOT NULL,
	unrealized_pl      TEXT NOT NULL DEFAULT '0',
	realized_pl        TEXT NOT NULL DEFAULT '0',
	dividends_received TEXT NOT NULL DEFAULT '0',
	cash_balance       TEXT NOT NULL DEFAULT '0',
	UNIQUE (broker_id, date)
);
`
