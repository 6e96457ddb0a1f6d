package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create agent threads and google tokens",
		SQL: `
			CREATE TABLE agent_threads (
				thread_id   TEXT PRIMARY KEY,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_agent_threads_updated ON agent_threads (updated_at DESC);

			CREATE TABLE google_tokens (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				access_token  TEXT NOT NULL,
				refresh_token TEXT NOT NULL DEFAULT '',
				token_expiry  TEXT NOT NULL DEFAULT '',
				updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_google_tokens_updated ON google_tokens (updated_at DESC);
		`,
	},
	{
		Version: 2,
		Name:    "create chat messages with embeddings",
		SQL: `
			CREATE TABLE chat_messages (
				id         TEXT PRIMARY KEY,
				channel    TEXT NOT NULL,
				author     TEXT NOT NULL,
				content    TEXT NOT NULL,
				posted_at  TEXT NOT NULL DEFAULT (datetime('now')),
				embedding  BLOB
			);

			CREATE INDEX idx_chat_messages_channel ON chat_messages (channel, posted_at);
		`,
	},
}
