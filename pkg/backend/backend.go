// Package backend defines the contracts shared by the remote job
// stores and the error taxonomy the sync orchestrators rely on.
//
// Backends implement a minimal surface: full-collection read and a
// whole-collection write. There is no incremental patching; the sync
// discipline is "merge, then overwrite".
package backend

import (
	"context"

	"github.com/antelabs/bodyshop/pkg/model"
)

// Kind identifies a remote backend.
type Kind string

const (
	// KindFirestore is the document-store backend.
	KindFirestore Kind = "firestore"

	// KindSheets is the spreadsheet backend.
	KindSheets Kind = "sheets"
)

// String returns the string representation of the backend kind.
func (k Kind) String() string {
	return string(k)
}

// JobReader fetches the full remote job collection.
type JobReader interface {
	// FetchJobs returns every job held by the backend. Decode failures
	// inside individual records degrade to defaults and do not fail
	// the fetch.
	FetchJobs(ctx context.Context) ([]model.Job, error)
}

// JobWriter replaces the remote job collection.
type JobWriter interface {
	// WriteJobs persists the given collection. Semantics are
	// backend-specific: the document store upserts by id in one batch,
	// the spreadsheet clears and rewrites the data range.
	WriteJobs(ctx context.Context, jobs []model.Job) error
}

// Store combines the read and write halves of a remote backend.
type Store interface {
	JobReader
	JobWriter
}
