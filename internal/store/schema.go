package store

// schemaSQL is the full relational schema (spec §3A). Every statement is
// idempotent so Migrate can run unconditionally on every process boot.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS blocks (
	height       BIGINT PRIMARY KEY,
	time_unix_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS state (
	id                                   SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	chain_id                             TEXT,
	latest_block_height                  BIGINT NOT NULL DEFAULT 0,
	latest_block_time_unix_ms            BIGINT NOT NULL DEFAULT 0,
	last_bank_block_height_exported      BIGINT NOT NULL DEFAULT 0,
	last_feegrant_block_height_exported  BIGINT NOT NULL DEFAULT 0,
	last_wasm_block_height_exported      BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS wasm_state_events (
	contract_address  TEXT NOT NULL,
	key               TEXT NOT NULL,
	value_json        JSONB,
	block_height      BIGINT NOT NULL,
	block_time_unix_ms BIGINT NOT NULL,
	delete            BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (contract_address, key, block_height)
);
CREATE INDEX IF NOT EXISTS idx_wasm_state_events_lookup
	ON wasm_state_events (contract_address, key, block_height DESC);

CREATE TABLE IF NOT EXISTS wasm_state_event_transformations (
	contract_address  TEXT NOT NULL,
	name              TEXT NOT NULL,
	value             JSONB,
	block_height      BIGINT NOT NULL,
	block_time_unix_ms BIGINT NOT NULL,
	PRIMARY KEY (contract_address, name, block_height)
);
CREATE INDEX IF NOT EXISTS idx_wasm_transformations_lookup
	ON wasm_state_event_transformations (contract_address, name, block_height DESC);

CREATE TABLE IF NOT EXISTS extractions (
	address           TEXT NOT NULL,
	name              TEXT NOT NULL,
	data              JSONB,
	block_height      BIGINT NOT NULL,
	block_time_unix_ms BIGINT NOT NULL,
	tx_hash           TEXT,
	PRIMARY KEY (address, name, block_height)
);
CREATE INDEX IF NOT EXISTS idx_extractions_lookup
	ON extractions (address, name, block_height DESC);

CREATE TABLE IF NOT EXISTS bank_state_events (
	address           TEXT NOT NULL,
	denom             TEXT NOT NULL,
	balance           TEXT NOT NULL,
	block_height      BIGINT NOT NULL,
	block_time_unix_ms BIGINT NOT NULL,
	PRIMARY KEY (address, denom, block_height)
);

CREATE TABLE IF NOT EXISTS bank_denom_balances (
	address      TEXT NOT NULL,
	denom        TEXT NOT NULL,
	balance      TEXT NOT NULL,
	block_height BIGINT NOT NULL,
	PRIMARY KEY (address, denom)
);

CREATE TABLE IF NOT EXISTS feegrant_allowances (
	granter                    TEXT NOT NULL,
	grantee                    TEXT NOT NULL,
	block_height               BIGINT NOT NULL,
	active                     BOOLEAN NOT NULL,
	allowance_data             BYTEA,
	parsed_amount              TEXT,
	parsed_denom               TEXT,
	parsed_allowance_type      TEXT,
	parsed_expiration_unix_ms  BIGINT,
	PRIMARY KEY (granter, grantee, block_height)
);
CREATE INDEX IF NOT EXISTS idx_feegrant_by_grantee
	ON feegrant_allowances (grantee, block_height DESC);
CREATE INDEX IF NOT EXISTS idx_feegrant_by_granter
	ON feegrant_allowances (granter, block_height DESC);

CREATE TABLE IF NOT EXISTS contracts (
	address                      TEXT PRIMARY KEY,
	code_id                      BIGINT NOT NULL,
	admin                        TEXT,
	creator                      TEXT,
	label                        TEXT,
	instantiated_at_block_height BIGINT NOT NULL,
	instantiated_at_tx_hash      TEXT
);
CREATE INDEX IF NOT EXISTS idx_contracts_code_id ON contracts (code_id);
`
