package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer outputs JSONL records for a sync cycle.
//
// Implementations must be safe for concurrent use from multiple
// goroutines. Each Write* method emits a complete record as a
// single line of JSON followed by a newline.
type Writer interface {
	// WriteStart emits a sync-start record.
	WriteStart(ctx context.Context, start *StartRecord) error

	// WriteMerge emits a merge outcome record.
	WriteMerge(ctx context.Context, m *MergeRecord) error

	// WriteDegradedRow emits a degraded-row record.
	WriteDegradedRow(ctx context.Context, row *DegradedRowRecord) error

	// WriteTruncation emits a truncated-write record.
	WriteTruncation(ctx context.Context, tr *TruncationRecord) error

	// WriteResult emits a final result record.
	WriteResult(ctx context.Context, res *ResultRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w       io.Writer
	syncID  string
	backend string
	mu      sync.Mutex

	// closed indicates the writer has been closed.
	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - syncID: Correlation ID for this sync cycle
//   - backend: Remote store identifier (e.g., "firestore")
func NewJSONLWriter(w io.Writer, syncID, backend string) *JSONLWriter {
	return &JSONLWriter{
		w:       w,
		syncID:  syncID,
		backend: backend,
	}
}

// WriteStart emits a sync-start record.
func (jw *JSONLWriter) WriteStart(ctx context.Context, start *StartRecord) error {
	return jw.writeRecord(ctx, TypeStart, start)
}

// WriteMerge emits a merge outcome record.
func (jw *JSONLWriter) WriteMerge(ctx context.Context, m *MergeRecord) error {
	return jw.writeRecord(ctx, TypeMerge, m)
}

// WriteDegradedRow emits a degraded-row record.
func (jw *JSONLWriter) WriteDegradedRow(ctx context.Context, row *DegradedRowRecord) error {
	return jw.writeRecord(ctx, TypeDegradedRow, row)
}

// WriteTruncation emits a truncated-write record.
func (jw *JSONLWriter) WriteTruncation(ctx context.Context, tr *TruncationRecord) error {
	return jw.writeRecord(ctx, TypeTruncation, tr)
}

// WriteResult emits a final result record.
func (jw *JSONLWriter) WriteResult(ctx context.Context, res *ResultRecord) error {
	return jw.writeRecord(ctx, TypeResult, res)
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line.
//
// This method holds the mutex for the entire operation to ensure
// atomic line writes. The record is written as a single line of
// JSON followed by a newline character.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	// Check context cancellation before acquiring lock
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal the data payload first (outside the lock for better concurrency)
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	// Check if writer is closed
	if jw.closed {
		return ErrWriterClosed
	}

	// Check context again after acquiring lock
	if err := ctx.Err(); err != nil {
		return err
	}

	// Create the envelope record
	record := Record{
		Type:    recordType,
		TS:      time.Now().UTC(),
		SyncID:  jw.syncID,
		Backend: jw.backend,
		Data:    dataBytes,
	}

	// Marshal the complete record
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// Write the record followed by newline.
	// We must handle short writes: io.Writer is allowed to return n < len(p)
	// with nil error, which would silently truncate JSONL lines and corrupt output.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
//
// io.Writer.Write may return n < len(p) with a nil error (short write).
// This function loops until all bytes are written or an error occurs,
// ensuring complete JSONL lines are emitted.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			// No progress made - avoid infinite loop
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Nop is a Writer that discards every record. It stands in when audit
// output is not enabled so callers never need a nil check.
type Nop struct{}

func (Nop) WriteStart(context.Context, *StartRecord) error             { return nil }
func (Nop) WriteMerge(context.Context, *MergeRecord) error             { return nil }
func (Nop) WriteDegradedRow(context.Context, *DegradedRowRecord) error { return nil }
func (Nop) WriteTruncation(context.Context, *TruncationRecord) error   { return nil }
func (Nop) WriteResult(context.Context, *ResultRecord) error           { return nil }
func (Nop) Close() error                                               { return nil }

// Compile-time checks that both writers implement Writer.
var (
	_ Writer = (*JSONLWriter)(nil)
	_ Writer = Nop{}
)
