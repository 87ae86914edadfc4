package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/imagenorm"
	"github.com/antelabs/bodyshop/pkg/merge"
	"github.com/antelabs/bodyshop/pkg/model"
	"github.com/antelabs/bodyshop/pkg/output"
)

// MaxBatchJobs caps how many jobs a document-store sync writes back.
//
// The backend rejects commits above its batch-write limit, so the
// orchestrator truncates instead of aborting: the first MaxBatchJobs
// merged jobs (newest first) are written and the tail is dropped from
// the write, with a warning. This is a deliberate bounded-loss policy;
// the returned merged collection still contains every job.
const MaxBatchJobs = 450

// DocumentSyncer orchestrates a sync cycle against the document store.
type DocumentSyncer struct {
	store     backend.Store
	logger    *zap.Logger
	audit     output.Writer
	imageOpts imagenorm.Options
}

var _ Syncer = (*DocumentSyncer)(nil)

// NewDocumentSyncer wires an orchestrator over a document-store client.
// A nil logger disables logging.
func NewDocumentSyncer(store backend.Store, logger *zap.Logger, opts ...Option) *DocumentSyncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &DocumentSyncer{
		store:     store,
		logger:    logger,
		audit:     o.audit,
		imageOpts: imagenorm.DefaultOptions(),
	}
}

// Sync fetches the remote collection, merges it with local, normalizes
// every outgoing image to fit transport constraints, and upserts the
// result in a single atomic batch.
//
// Fields with no value never reach the backend: the client's document
// encoding omits them, the equivalent of round-tripping through a
// format that drops absent fields.
func (s *DocumentSyncer) Sync(ctx context.Context, local []model.Job) (merged []model.Job, err error) {
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

	remote, err := s.store.FetchJobs(ctx)
	if err != nil {
		return nil, err
	}

	merged = merge.Merge(local, remote)
	_ = s.audit.WriteMerge(ctx, &output.MergeRecord{
		LocalJobs:  len(local),
		RemoteJobs: len(remote),
		MergedJobs: len(merged),
	})

	outgoing := merged
	if len(outgoing) > MaxBatchJobs {
		s.logger.Warn("Job count exceeds batch-write cap; truncating write",
			zap.Int("jobs", len(outgoing)),
			zap.Int("cap", MaxBatchJobs),
			zap.Int("dropped_from_write", len(outgoing)-MaxBatchJobs))
		_ = s.audit.WriteTruncation(ctx, &output.TruncationRecord{
			MergedJobs:       len(merged),
			WrittenJobs:      MaxBatchJobs,
			DroppedFromWrite: len(merged) - MaxBatchJobs,
		})
		outgoing = outgoing[:MaxBatchJobs]
	}

	batch := make([]model.Job, 0, len(outgoing))
	for _, job := range outgoing {
		batch = append(batch, s.normalizeImages(job))
	}

	if err := s.store.WriteJobs(ctx, batch); err != nil {
		return nil, err
	}

	s.logger.Info("Document sync complete",
		zap.Int("local", len(local)),
		zap.Int("remote", len(remote)),
		zap.Int("merged", len(merged)),
		zap.Int("written", len(batch)))

	return merged, nil
}

// normalizeImages re-encodes the job's image fields. Normalization is
// fail-soft per image: a corrupt payload passes through unchanged.
func (s *DocumentSyncer) normalizeImages(job model.Job) model.Job {
	out := job.Clone()
	if out.IntakeImage != "" {
		out.IntakeImage = imagenorm.Normalize(out.IntakeImage, s.imageOpts)
	}
	for i, img := range out.DamageImages {
		out.DamageImages[i] = imagenorm.Normalize(img, s.imageOpts)
	}
	return out
}
