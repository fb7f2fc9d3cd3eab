// Package sqlite provides SQLite-backed persistence for delta-sync
// cursors. The database file lives under the service's data directory
// and is migrated automatically on open.
package sqlite
