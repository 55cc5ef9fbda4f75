// Package history persists a record of every rip run in SQLite.
//
// The Store is optional: it is only opened when history_db is configured.
// Each run row carries its outcome, exit code, and timing; title rows hang off
// the run. Schema changes bump schemaVersion in schema.go and users delete the
// database to adopt the new schema.
package history
