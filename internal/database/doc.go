// Package database provides SQLite-based storage for phishscan.
//
// The database holds two tables:
//   - kv: small JSON documents addressed by key (the report queue under
//     "phish_reports", user thresholds under "phish_settings")
//   - analyses: a history of classification results
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver. The pool
// is limited to a single connection, so every transaction opened through DB
// is serialized with every other one in the process.
package database
