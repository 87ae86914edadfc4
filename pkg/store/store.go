// Package store persists the two local state blobs: the job collection
// and the app settings.
//
// Layout:
//
//	<root>/jobs.json
//	<root>/settings.json
//
// Each blob is loaded wholesale at startup and rewritten wholesale on
// every change; there is no incremental patching. Writes are atomic
// (temp file + rename) so a crash mid-save never corrupts local state.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antelabs/bodyshop/pkg/model"
)

const (
	jobsFile     = "jobs.json"
	settingsFile = "settings.json"
)

// Store reads and writes the local state directory.
type Store struct {
	root string
}

// New creates a store rooted at the given data directory.
func New(root string) *Store {
	return &Store{root: strings.TrimSpace(root)}
}

// RootDir returns the data directory.
func (s *Store) RootDir() string {
	return s.root
}

func (s *Store) jobsPath() string {
	return filepath.Join(s.root, jobsFile)
}

func (s *Store) settingsPath() string {
	return filepath.Join(s.root, settingsFile)
}

func (s *Store) ensureRoot() error {
	if s.root == "" {
		return fmt.Errorf("store root dir is empty")
	}
	return os.MkdirAll(s.root, 0755)
}

// LoadJobs reads the persisted job collection, sorted by createdAt
// descending. A missing file is an empty collection, not an error.
func (s *Store) LoadJobs() ([]model.Job, error) {
	b, err := os.ReadFile(s.jobsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Job{}, nil
		}
		return nil, fmt.Errorf("read jobs: %w", err)
	}

	var jobs []model.Job
	if err := json.Unmarshal(b, &jobs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", jobsFile, err)
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt > jobs[j].CreatedAt
	})
	return jobs, nil
}

// SaveJobs atomically replaces the persisted job collection.
func (s *Store) SaveJobs(jobs []model.Job) error {
	if jobs == nil {
		jobs = []model.Job{}
	}
	return s.writeBlob(s.jobsPath(), jobs)
}

// LoadSettings reads the persisted settings record. A missing file
// yields zero-value settings, not an error.
func (s *Store) LoadSettings() (model.AppSettings, error) {
	var settings model.AppSettings
	b, err := os.ReadFile(s.settingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(b, &settings); err != nil {
		return model.AppSettings{}, fmt.Errorf("parse %s: %w", settingsFile, err)
	}
	return settings, nil
}

// SaveSettings atomically replaces the persisted settings record.
func (s *Store) SaveSettings(settings model.AppSettings) error {
	return s.writeBlob(s.settingsPath(), settings)
}

// writeBlob marshals v and renames it into place.
func (s *Store) writeBlob(path string, v any) error {
	if err := s.ensureRoot(); err != nil {
		return err
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(s.root, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
