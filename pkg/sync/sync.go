// Package sync implements the job synchronization orchestrators.
//
// Both orchestrators share one contract: fetch the remote collection,
// reconcile it with the caller's local collection through the merge
// engine, write the result back, and return the merged collection as
// the caller's new source of truth.
//
// Failure policy: configuration and transport errors bubble up before
// any replacement list is produced, so a failed sync leaves the caller
// holding its pre-sync local list. Data-shape errors inside a single
// record degrade to defaults, are logged, and never fail the cycle.
//
// Callers must serialize sync invocations per settings context: the
// merge algorithm is single-pass and two overlapping syncs could race
// on the batch write or sheet overwrite.
package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/backend/firestore"
	"github.com/antelabs/bodyshop/pkg/backend/sheets"
	"github.com/antelabs/bodyshop/pkg/model"
	"github.com/antelabs/bodyshop/pkg/output"
)

// Syncer is the shared orchestrator contract.
type Syncer interface {
	// Sync reconciles local with the remote store and returns the
	// merged collection. On error the remote store may be partially
	// read but local state is never replaced.
	Sync(ctx context.Context, local []model.Job) ([]model.Job, error)
}

// Option adjusts orchestrator construction.
type Option func(*options)

type options struct {
	audit output.Writer
}

// WithAudit attaches a JSONL audit writer. Every cycle emits start,
// merge, and result records through it; audit write failures are
// ignored and never fail a sync.
func WithAudit(w output.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.audit = w
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{audit: output.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ForSettings builds the orchestrator for the requested backend from
// the app settings. Returns a *backend.ConfigError when the relevant
// settings are missing; no network call is made here.
func ForSettings(settings model.AppSettings, kind backend.Kind, logger *zap.Logger, opts ...Option) (Syncer, error) {
	switch kind {
	case backend.KindFirestore:
		client, err := firestore.New(firestore.Config{
			ProjectID: settings.Firestore.ProjectID,
			APIKey:    settings.Firestore.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return NewDocumentSyncer(client, logger, opts...), nil

	case backend.KindSheets:
		client, err := sheets.New(sheets.Config{
			SpreadsheetID: settings.Sheets.SpreadsheetID,
			AccessToken:   settings.Sheets.AccessToken,
		})
		if err != nil {
			return nil, err
		}
		return NewSheetSyncer(client, logger, opts...), nil

	default:
		return nil, &backend.ConfigError{Backend: kind, Missing: "known backend kind"}
	}
}
