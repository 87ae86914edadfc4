package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/pkg/merge"
	"github.com/antelabs/bodyshop/pkg/model"
	"github.com/antelabs/bodyshop/pkg/output"
	"github.com/antelabs/bodyshop/pkg/rowcodec"
)

// SheetAPI is the row-level surface the sheet orchestrator needs from
// the spreadsheet client.
type SheetAPI interface {
	// EnsureSheet idempotently bootstraps the job tab and header row.
	EnsureSheet(ctx context.Context, headers []string) error

	// ReadRows returns every data row below the header.
	ReadRows(ctx context.Context) ([][]string, error)

	// Clear empties the data range.
	Clear(ctx context.Context) error

	// AppendRows writes rows after the current end of the data range.
	AppendRows(ctx context.Context, rows [][]string) error
}

// SheetSyncer orchestrates a sync cycle against the spreadsheet.
type SheetSyncer struct {
	api    SheetAPI
	logger *zap.Logger
	audit  output.Writer
}

var _ Syncer = (*SheetSyncer)(nil)

// NewSheetSyncer wires an orchestrator over a spreadsheet client.
// A nil logger disables logging.
func NewSheetSyncer(api SheetAPI, logger *zap.Logger, opts ...Option) *SheetSyncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &SheetSyncer{api: api, logger: logger, audit: o.audit}
}

// Sync bootstraps the tab if needed, decodes the remote rows, merges
// with local, and rewrites the whole data range: clear, then append
// every merged job encoded through the row codec (which strips images).
//
// Malformed rows degrade to defaults row by row and never fail the
// cycle; rows that decode without an id are dropped from the remote set
// since an id-less job cannot participate in the merge.
func (s *SheetSyncer) Sync(ctx context.Context, local []model.Job) (merged []model.Job, err error) {
	start := time.Now()
	_ = s.audit.WriteStart(ctx, &output.StartRecord{LocalJobs: len(local)})
	defer func() {
		elapsed := time.Since(start)
		res := &output.ResultRecord{
			Jobs:          len(merged),
			Duration:      elapsed,
			DurationHuman: elapsed.Round(time.Millisecond).String(),
		}
		if err != nil {
			res.Error = err.Error()
		}
		_ = s.audit.WriteResult(ctx, res)
	}()

	if err := s.api.EnsureSheet(ctx, rowcodec.Headers); err != nil {
		return nil, err
	}

	rows, err := s.api.ReadRows(ctx)
	if err != nil {
		return nil, err
	}

	remote := make([]model.Job, 0, len(rows))
	degraded := 0
	for i, row := range rows {
		job, decErr := rowcodec.Decode(row)
		if decErr != nil {
			degraded++
			s.logger.Warn("Row decoded with defaults",
				zap.Int("row", i+2), // sheet rows are 1-based, data starts at 2
				zap.Error(decErr))
			s.auditDegradedRow(ctx, i+2, job.ID, decErr, job.ID == "")
		}
		if job.ID == "" {
			s.logger.Warn("Dropping row without id", zap.Int("row", i+2))
			if decErr == nil {
				s.auditDegradedRow(ctx, i+2, "", nil, true)
			}
			continue
		}
		remote = append(remote, job)
	}

	merged = merge.Merge(local, remote)
	_ = s.audit.WriteMerge(ctx, &output.MergeRecord{
		LocalJobs:  len(local),
		RemoteJobs: len(remote),
		MergedJobs: len(merged),
	})

	if err := s.api.Clear(ctx); err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(merged))
	for _, job := range merged {
		out = append(out, rowcodec.Encode(job))
	}
	if err := s.api.AppendRows(ctx, out); err != nil {
		return nil, err
	}

	s.logger.Info("Sheet sync complete",
		zap.Int("local", len(local)),
		zap.Int("remote_rows", len(rows)),
		zap.Int("degraded_rows", degraded),
		zap.Int("merged", len(merged)))

	return merged, nil
}

func (s *SheetSyncer) auditDegradedRow(ctx context.Context, row int, jobID string, decErr error, dropped bool) {
	rec := &output.DegradedRowRecord{Row: row, JobID: jobID, Dropped: dropped}
	var dec *rowcodec.DecodeError
	if errors.As(decErr, &dec) {
		rec.Fields = dec.Fields
	}
	_ = s.audit.WriteDegradedRow(ctx, rec)
}
