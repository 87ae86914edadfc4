// Package jobs implements the workshop job lifecycle over the local
// store: intake, damage assessment, edits, and the listing the
// dashboard renders.
//
// The service is the explicit application-state object: it loads the
// persisted collection once, mutates it in memory under a lock, and
// rewrites the blob on every change. After a successful sync the whole
// collection is replaced with the merged result.
package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/pkg/model"
	"github.com/antelabs/bodyshop/pkg/store"
)

// ErrNotFound is returned when no job has the requested id.
var ErrNotFound = fmt.Errorf("job not found")

// Service owns the in-memory job collection and its persistence.
type Service struct {
	mu     sync.Mutex
	store  *store.Store
	logger *zap.Logger
	jobs   []model.Job
}

// NewService loads the persisted collection and returns the service.
// A nil logger disables logging.
func NewService(st *store.Store, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loaded, err := st.LoadJobs()
	if err != nil {
		return nil, err
	}
	return &Service{store: st, logger: logger, jobs: loaded}, nil
}

// List returns the collection sorted by createdAt descending. The
// returned slice is a deep copy.
func (s *Service) List() []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.jobs)
}

// Get returns the job with the given id.
func (s *Service) Get(id string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j.Clone(), nil
		}
	}
	return model.Job{}, ErrNotFound
}

// Create registers a new job from the intake workflow. Plate, make,
// and model are required; the id is assigned here and never changes.
func (s *Service) Create(details model.CarDetails, intakeImage string) (model.Job, error) {
	if !details.Complete() {
		return model.Job{}, fmt.Errorf("intake requires plate, make, and model")
	}

	job := model.Job{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now().UnixMilli(),
		Status:          model.StatusIntake,
		CarDetails:      details,
		IntakeImage:     intakeImage,
		DamageImages:    []string{},
		IdentifiedParts: []string{},
		RepairType:      model.RepairBodyWork,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	if err := s.persistLocked(); err != nil {
		s.jobs = s.jobs[:len(s.jobs)-1]
		return model.Job{}, err
	}

	s.logger.Info("Job created",
		zap.String("job_id", job.ID),
		zap.String("plate", details.Plate))
	return job.Clone(), nil
}

// AppendAssessment records a damage assessment: the text is
// concatenated onto the existing notes (notes are append-only in
// spirit), new parts are deduplicated against the existing set, and a
// job still in intake advances to assessing.
func (s *Service) AppendAssessment(id, notes string, parts []string) (model.Job, error) {
	return s.update(id, func(job *model.Job) error {
		if notes != "" {
			if job.ManualNotes != "" {
				job.ManualNotes += "\n\n"
			}
			job.ManualNotes += notes
		}
		job.IdentifiedParts = dedupeParts(job.IdentifiedParts, parts)
		if job.Status == model.StatusIntake {
			job.Status = model.StatusAssessing
		}
		return nil
	})
}

// SetIntakeImage replaces the identification photo.
func (s *Service) SetIntakeImage(id, encoded string) (model.Job, error) {
	return s.update(id, func(job *model.Job) error {
		job.IntakeImage = encoded
		return nil
	})
}

// AddDamageImage appends a damage photo; insertion order is meaningful.
func (s *Service) AddDamageImage(id, encoded string) (model.Job, error) {
	return s.update(id, func(job *model.Job) error {
		job.DamageImages = append(job.DamageImages, encoded)
		return nil
	})
}

// RemoveDamageImage removes the damage photo at the given index.
func (s *Service) RemoveDamageImage(id string, index int) (model.Job, error) {
	return s.update(id, func(job *model.Job) error {
		if index < 0 || index >= len(job.DamageImages) {
			return fmt.Errorf("damage image index %d out of range", index)
		}
		job.DamageImages = append(job.DamageImages[:index], job.DamageImages[index+1:]...)
		return nil
	})
}

// SetStatus moves a job to the given workflow stage.
func (s *Service) SetStatus(id string, status model.JobStatus) (model.Job, error) {
	return s.update(id, func(job *model.Job) error {
		job.Status = status
		return nil
	})
}

// SetRepairType records the repair classification.
func (s *Service) SetRepairType(id string, rt model.RepairType) (model.Job, error) {
	return s.update(id, func(job *model.Job) error {
		job.RepairType = rt
		return nil
	})
}

// Replace swaps the whole collection for the merged result of a sync
// and persists it. The input becomes the new source of truth.
func (s *Service) Replace(merged []model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.jobs
	s.jobs = cloneAll(merged)
	if err := s.persistLocked(); err != nil {
		s.jobs = prev
		return err
	}
	return nil
}

// update applies fn to the job with the given id and persists the
// collection. fn failures and persistence failures leave the in-memory
// state untouched.
func (s *Service) update(id string, fn func(*model.Job) error) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].ID != id {
			continue
		}
		updated := s.jobs[i].Clone()
		if err := fn(&updated); err != nil {
			return model.Job{}, err
		}
		prev := s.jobs[i]
		s.jobs[i] = updated
		if err := s.persistLocked(); err != nil {
			s.jobs[i] = prev
			return model.Job{}, err
		}
		return updated.Clone(), nil
	}
	return model.Job{}, ErrNotFound
}

func (s *Service) persistLocked() error {
	sort.SliceStable(s.jobs, func(i, j int) bool {
		return s.jobs[i].CreatedAt > s.jobs[j].CreatedAt
	})
	return s.store.SaveJobs(s.jobs)
}

func cloneAll(jobs []model.Job) []model.Job {
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// dedupeParts merges incoming part names into existing, preserving
// first-seen order and dropping duplicates and blanks.
func dedupeParts(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, p := range existing {
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range incoming {
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
