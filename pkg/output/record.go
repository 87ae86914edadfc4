// Package output provides JSONL audit output for sync cycles.
//
// Output is structured as typed record envelopes describing what a sync
// cycle did: the merge outcome, rows that decoded with defaults, writes
// truncated by the batch cap, and the final result. Each line is a
// self-contained JSON object that can be parsed independently, so an
// audit file can be tailed or post-processed with standard JSONL tools.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: bodyshop.<type>.v<version>
const (
	// TypeStart identifies sync-start records.
	TypeStart = "bodyshop.sync_start.v1"

	// TypeMerge identifies merge outcome records.
	TypeMerge = "bodyshop.merge.v1"

	// TypeDegradedRow identifies records for rows that decoded with
	// defaults substituted for unreadable fields.
	TypeDegradedRow = "bodyshop.degraded_row.v1"

	// TypeTruncation identifies records for writes truncated by the
	// batch cap.
	TypeTruncation = "bodyshop.truncation.v1"

	// TypeResult identifies final sync result records.
	TypeResult = "bodyshop.sync_result.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "bodyshop.merge.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// SyncID is the correlation ID for this sync cycle.
	SyncID string `json:"sync_id"`

	// Backend identifies the remote store ("firestore", "sheets").
	Backend string `json:"backend"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// StartRecord is the data payload emitted when a sync cycle begins.
type StartRecord struct {
	// LocalJobs is the size of the local collection entering the cycle.
	LocalJobs int `json:"local_jobs"`
}

// MergeRecord is the data payload for the merge outcome.
type MergeRecord struct {
	// LocalJobs is the number of jobs on the local side of the merge.
	LocalJobs int `json:"local_jobs"`

	// RemoteJobs is the number of usable jobs read from the backend.
	RemoteJobs int `json:"remote_jobs"`

	// MergedJobs is the size of the reconciled collection.
	MergedJobs int `json:"merged_jobs"`
}

// DegradedRowRecord is the data payload for a row that decoded with
// defaults. Degraded rows still participate in the merge; the record
// exists so an operator can find and repair the source cell.
type DegradedRowRecord struct {
	// Row is the 1-based spreadsheet row number.
	Row int `json:"row"`

	// JobID is the id decoded from the row, if any.
	JobID string `json:"job_id,omitempty"`

	// Fields names the columns that fell back to defaults.
	Fields []string `json:"fields,omitempty"`

	// Dropped reports whether the row was excluded from the merge
	// entirely (a row without an id cannot be reconciled).
	Dropped bool `json:"dropped,omitempty"`
}

// TruncationRecord is the data payload emitted when the outgoing write
// exceeds the backend's batch cap and the tail is dropped from the
// write. The merged collection itself is never truncated.
type TruncationRecord struct {
	MergedJobs       int `json:"merged_jobs"`
	WrittenJobs      int `json:"written_jobs"`
	DroppedFromWrite int `json:"dropped_from_write"`
}

// ResultRecord is the data payload emitted at the end of a sync cycle.
type ResultRecord struct {
	// Jobs is the size of the merged collection returned to the caller.
	// Zero when the cycle failed.
	Jobs int `json:"jobs"`

	// Duration is the cycle duration in nanoseconds.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
