// Package queue keeps suspect-page reports locally until they are uploaded.
//
// Reports are stored newest first as one JSON array under the key
// "phish_reports". Every mutation is a read-modify-write executed as a
// single storage transaction, so concurrent appends are never lost. An
// upload sends a snapshot of the queue and, on success, removes exactly the
// reports in that snapshot; reports appended while the upload was in flight
// stay queued.
package queue
