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

CREATE TABLE IF NOT EXISTS notifications (
	id                  TEXT PRIMARY KEY,
	position            INTEGER NOT NULL,
	type                TEXT NOT NULL,
	category            TEXT NOT NULL,
	priority            TEXT NOT NULL,
	title               TEXT NOT NULL DEFAULT '',
	message             TEXT NOT NULL DEFAULT '',
	is_read             INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	is_archived         INTEGER NOT NULL DEFAULT 0 CHECK(is_archived IN (0, 1)),
	is_pinned           INTEGER NOT NULL DEFAULT 0 CHECK(is_pinned IN (0, 1)),
	user_id             TEXT NOT NULL DEFAULT '',
	related_entity_id   TEXT NOT NULL DEFAULT '',
	related_entity_type TEXT NOT NULL DEFAULT '',
	metadata            TEXT NOT NULL DEFAULT '{}',
	created_at          INTEGER NOT NULL,
	read_at             INTEGER,
	expires_at          INTEGER
);

CREATE TABLE IF NOT EXISTS settings (
	user_id          TEXT NOT NULL,
	category         TEXT NOT NULL,
	enabled          INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	channels         TEXT NOT NULL DEFAULT '{}',
	frequency        TEXT NOT NULL DEFAULT 'immediate',
	quiet_hours      TEXT NOT NULL DEFAULT '{}',
	keywords         TEXT NOT NULL DEFAULT '[]',
	exclude_keywords TEXT NOT NULL DEFAULT '[]',
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL,
	PRIMARY KEY (user_id, category)
);

CREATE TABLE IF NOT EXISTS permissions (
	role          TEXT NOT NULL,
	category      TEXT NOT NULL,
	can_receive   INTEGER NOT NULL DEFAULT 0 CHECK(can_receive IN (0, 1)),
	can_configure INTEGER NOT NULL DEFAULT 0 CHECK(can_configure IN (0, 1)),
	can_send      INTEGER NOT NULL DEFAULT 0 CHECK(can_send IN (0, 1)),
	can_manage    INTEGER NOT NULL DEFAULT 0 CHECK(can_manage IN (0, 1)),
	restrictions  TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (role, category)
);

CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(position);
CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id       INTEGER PRIMARY KEY CHECK(id = 1),
	taken_at INTEGER NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
