// Package model defines the core entities shared by the sync engine,
// the local store, and the remote backends.
//
// The JSON tags on these types are part of the stable persistence
// contract: they are written verbatim to the local jobs.json blob and
// to the document-store backend. Changes must be backward compatible
// (additive fields only).
package model

import "time"

// JobStatus is the workflow stage of a job.
//
// NOTE: These values are persisted locally and remotely and are part of
// the stable on-disk contract.
type JobStatus string

const (
	StatusIntake     JobStatus = "intake"
	StatusAssessing  JobStatus = "assessing"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
)

// ParseJobStatus maps a persisted status string to a JobStatus.
// Unknown values fall back to StatusIntake so that malformed remote
// rows never block a sync.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case StatusIntake, StatusAssessing, StatusInProgress, StatusCompleted:
		return JobStatus(s)
	default:
		return StatusIntake
	}
}

// RepairType classifies the work a job requires.
type RepairType string

const (
	RepairBodyWork RepairType = "bodywork"
	RepairPaint    RepairType = "paint"
	RepairBoth     RepairType = "both"
)

// ParseRepairType maps a persisted repair-type string to a RepairType,
// falling back to RepairBodyWork for unknown values.
func ParseRepairType(s string) RepairType {
	switch RepairType(s) {
	case RepairBodyWork, RepairPaint, RepairBoth:
		return RepairType(s)
	default:
		return RepairBodyWork
	}
}

// CarDetails identifies the vehicle attached to a job.
type CarDetails struct {
	Plate string `json:"plate"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color,omitempty"`
	Year  string `json:"year,omitempty"`
}

// Complete reports whether the details are sufficient for intake.
// Plate, make, and model are required; color and year are optional.
func (c CarDetails) Complete() bool {
	return c.Plate != "" && c.Make != "" && c.Model != ""
}

// Job is a single vehicle repair work order tracked through intake,
// assessment, repair, and completion.
//
// Images are stored as encoded data URLs. The spreadsheet backend never
// carries them (a single encoded image can exceed the per-cell size
// limit), which is why the merge policy treats image fields asymmetrically.
type Job struct {
	// ID is assigned at creation and never regenerated.
	ID string `json:"id"`

	// CreatedAt is epoch milliseconds, immutable after creation.
	// All listings sort by it descending.
	CreatedAt int64 `json:"createdAt"`

	Status JobStatus `json:"status"`

	CarDetails CarDetails `json:"carDetails"`

	// IntakeImage is the identification photo, if captured.
	IntakeImage string `json:"intakeImage,omitempty"`

	// DamageImages is an ordered sequence; the index acts as a
	// stable-ish position reference for removal, not a true identifier.
	DamageImages []string `json:"damageImages"`

	// IdentifiedParts lists damaged part names. Duplicates are only
	// prevented on the assessment-merge path.
	IdentifiedParts []string `json:"identifiedParts"`

	// ManualNotes is append-only in spirit: assessment text is
	// concatenated onto prior notes, never replacing them.
	ManualNotes string `json:"manualNotes"`

	RepairType RepairType `json:"repairType"`
}

// CreatedTime returns CreatedAt as a time.Time.
func (j Job) CreatedTime() time.Time {
	return time.UnixMilli(j.CreatedAt)
}

// Clone returns a deep copy of the job. Slices are copied so that
// mutating the clone never aliases the original.
func (j Job) Clone() Job {
	out := j
	if j.DamageImages != nil {
		out.DamageImages = append([]string(nil), j.DamageImages...)
	}
	if j.IdentifiedParts != nil {
		out.IdentifiedParts = append([]string(nil), j.IdentifiedParts...)
	}
	return out
}
