// Package sqlite provides a SQLite-backed docstore.Store.
//
// Documents live in a single table keyed by id with a type column for class
// scans; bodies are JSON TEXT. Field filters are applied in Go after the class
// scan, using the same matcher as every other backend.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Schema changes are tracked with PRAGMA user_version.
package sqlite
