// Package collector implements both ends of the report upload contract.
//
// A client sends its queued reports in one request:
//
//	POST <endpoint>
//	Content-Type: application/json
//	{"reports": [Report, ...]}
//
// The collector prepends them to its store and answers
// {"ok": true, "stored": n}, or 500 with {"ok": false, "error": "..."}.
// Any 2xx status counts as a successful upload. A body that is not of the
// {"reports": [...]} form is stored as a single report.
//
// The server side keeps reports as raw JSON so fields it does not know about
// survive the round trip. Reports are persisted to a JSON file by default or
// to PostgreSQL when a postgres:// DSN is configured.
package collector
