package store

// migration holds one schema version with the SQL for each dialect.
type migration struct {
	version  int
	sqlite   string
	postgres string
}

// migrations is the ordered list of schema migrations.
// Versions must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sqlite: `
CREATE TABLE IF NOT EXISTS threads (
	id                   TEXT PRIMARY KEY,
	thread_key           TEXT UNIQUE,
	contact_name         TEXT NOT NULL DEFAULT '',
	contact_email        TEXT NOT NULL DEFAULT '',
	subject              TEXT NOT NULL DEFAULT '',
	category             TEXT NOT NULL DEFAULT 'PERSONAL',
	priority_score       REAL NOT NULL DEFAULT 0,
	unread_count         INTEGER NOT NULL DEFAULT 0 CHECK(unread_count >= 0),
	is_muted             INTEGER NOT NULL DEFAULT 0,
	is_archived          INTEGER NOT NULL DEFAULT 0,
	last_message_at      DATETIME NOT NULL,
	last_summary_preview TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	id                TEXT PRIMARY KEY,
	thread_id         TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	message_id_header TEXT NOT NULL UNIQUE,
	from_address      TEXT NOT NULL DEFAULT '',
	to_addresses      TEXT NOT NULL DEFAULT '[]',
	subject           TEXT NOT NULL DEFAULT '',
	body_text         TEXT NOT NULL DEFAULT '',
	body_html         TEXT NOT NULL DEFAULT '',
	direction         TEXT NOT NULL CHECK(direction IN ('INBOUND', 'OUTBOUND')),
	delivery_status   TEXT NOT NULL,
	is_read           INTEGER NOT NULL DEFAULT 0,
	sent_at           DATETIME NOT NULL,
	received_at       DATETIME NOT NULL,
	summary           TEXT NOT NULL DEFAULT '',
	action_items      TEXT NOT NULL DEFAULT '[]',
	entities          TEXT NOT NULL DEFAULT '[]',
	category          TEXT NOT NULL DEFAULT 'PERSONAL',
	confidence        REAL NOT NULL DEFAULT 0,
	priority_score    REAL NOT NULL DEFAULT 0,
	reasoning         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_threads_last_message_at ON threads(last_message_at);
CREATE INDEX IF NOT EXISTS idx_messages_thread_sent ON messages(thread_id, sent_at);
`,
		postgres: `
CREATE TABLE IF NOT EXISTS threads (
	id                   TEXT PRIMARY KEY,
	thread_key           TEXT UNIQUE,
	contact_name         TEXT NOT NULL DEFAULT '',
	contact_email        TEXT NOT NULL DEFAULT '',
	subject              TEXT NOT NULL DEFAULT '',
	category             TEXT NOT NULL DEFAULT 'PERSONAL',
	priority_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	unread_count         INTEGER NOT NULL DEFAULT 0 CHECK(unread_count >= 0),
	is_muted             BOOLEAN NOT NULL DEFAULT FALSE,
	is_archived          BOOLEAN NOT NULL DEFAULT FALSE,
	last_message_at      TIMESTAMPTZ NOT NULL,
	last_summary_preview TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	id                TEXT PRIMARY KEY,
	thread_id         TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	message_id_header TEXT NOT NULL UNIQUE,
	from_address      TEXT NOT NULL DEFAULT '',
	to_addresses      TEXT NOT NULL DEFAULT '[]',
	subject           TEXT NOT NULL DEFAULT '',
	body_text         TEXT NOT NULL DEFAULT '',
	body_html         TEXT NOT NULL DEFAULT '',
	direction         TEXT NOT NULL CHECK(direction IN ('INBOUND', 'OUTBOUND')),
	delivery_status   TEXT NOT NULL,
	is_read           BOOLEAN NOT NULL DEFAULT FALSE,
	sent_at           TIMESTAMPTZ NOT NULL,
	received_at       TIMESTAMPTZ NOT NULL,
	summary           TEXT NOT NULL DEFAULT '',
	action_items      TEXT NOT NULL DEFAULT '[]',
	entities          TEXT NOT NULL DEFAULT '[]',
	category          TEXT NOT NULL DEFAULT 'PERSONAL',
	confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
	priority_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
	reasoning         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_threads_last_message_at ON threads(last_message_at);
CREATE INDEX IF NOT EXISTS idx_messages_thread_sent ON messages(thread_id, sent_at);
`,
	},
}
