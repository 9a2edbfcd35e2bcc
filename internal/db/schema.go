package db

import "database/sql"

// ensureSchema creates the database's one table: persisted tunable
// overrides (spec §6). History itself is never persisted (spec §1
// Non-goals), so there is nothing else to migrate.
func ensureSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}
