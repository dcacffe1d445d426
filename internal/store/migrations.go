package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	email      TEXT NOT NULL,
	enabled    INTEGER NOT NULL DEFAULT 1,
	imap_host  TEXT NOT NULL DEFAULT '',
	imap_port  INTEGER NOT NULL DEFAULT 0,
	imap_tls   INTEGER NOT NULL DEFAULT 1,
	username   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS prompts (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	instruction     TEXT NOT NULL DEFAULT '',
	time_range      TEXT NOT NULL DEFAULT '24h',
	trigger_mode    TEXT NOT NULL DEFAULT 'on_demand',
	recurrence      TEXT NOT NULL DEFAULT '',
	actionable_only INTEGER NOT NULL DEFAULT 0,
	enabled         INTEGER NOT NULL DEFAULT 1,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS executions (
	id            TEXT PRIMARY KEY,
	prompt_id     TEXT NOT NULL,
	prompt_name   TEXT NOT NULL,
	timestamp     DATETIME NOT NULL,
	result        TEXT NOT NULL DEFAULT '',
	actionable    INTEGER NOT NULL DEFAULT 0,
	message_count INTEGER NOT NULL DEFAULT 0,
	position      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_enabled ON accounts(enabled);
CREATE INDEX IF NOT EXISTS idx_prompts_enabled ON prompts(enabled);
CREATE INDEX IF NOT EXISTS idx_executions_position ON executions(position);
CREATE INDEX IF NOT EXISTS idx_executions_prompt_id ON executions(prompt_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE executions ADD COLUMN shown INTEGER NOT NULL DEFAULT 0;

CREATE INDEX IF NOT EXISTS idx_executions_shown ON executions(shown);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
