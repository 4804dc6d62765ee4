package datastore

// SQLiteSchema bootstraps the sqlite variant at startup. The postgres
// schema is managed by the embedded goose migrations instead; sqlite
// deployments are dev/test-grade and skip migration tracking.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);
`
