package sync

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/model"
)

// fakeStore is an in-memory document store.
type fakeStore struct {
	remote   []model.Job
	fetchErr error
	writeErr error
	written  []model.Job
	writes   int
}

func (f *fakeStore) FetchJobs(ctx context.Context) ([]model.Job, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.remote, nil
}

func (f *fakeStore) WriteJobs(ctx context.Context, jobs []model.Job) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes++
	f.written = jobs
	return nil
}

func docJob(id string, createdAt int64, notes string) model.Job {
	return model.Job{
		ID:              id,
		CreatedAt:       createdAt,
		Status:          model.StatusIntake,
		ManualNotes:     notes,
		DamageImages:    []string{},
		IdentifiedParts: []string{},
		RepairType:      model.RepairBodyWork,
	}
}

func TestDocumentSyncer_MergesAndWritesBack(t *testing.T) {
	store := &fakeStore{remote: []model.Job{
		docJob("a", 100, "remote"),
		docJob("b", 200, "remote only"),
	}}
	s := NewDocumentSyncer(store, nil)

	local := []model.Job{docJob("a", 100, "local"), docJob("c", 300, "new")}
	merged, err := s.Sync(context.Background(), local)
	require.NoError(t, err)

	require.Len(t, merged, 3)
	assert.Equal(t, "c", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
	assert.Equal(t, "a", merged[2].ID)
	assert.Equal(t, "local", merged[2].ManualNotes)

	require.Equal(t, 1, store.writes)
	assert.Len(t, store.written, 3)
}

func TestDocumentSyncer_FetchFailureWritesNothing(t *testing.T) {
	store := &fakeStore{fetchErr: &backend.BackendError{
		Op: "FetchJobs", Backend: backend.KindFirestore, Err: backend.ErrPermissionDenied,
	}}
	s := NewDocumentSyncer(store, nil)

	_, err := s.Sync(context.Background(), []model.Job{docJob("a", 1, "")})
	require.Error(t, err)
	assert.True(t, backend.IsPermissionDenied(err))
	assert.Zero(t, store.writes)
}

func TestDocumentSyncer_WriteFailureSurfaces(t *testing.T) {
	store := &fakeStore{
		remote:   []model.Job{docJob("a", 1, "")},
		writeErr: &backend.BackendError{Op: "WriteJobs", Backend: backend.KindFirestore, Err: backend.ErrUnavailable},
	}
	s := NewDocumentSyncer(store, nil)

	_, err := s.Sync(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, backend.IsUnavailable(err))
}

func TestDocumentSyncer_TruncatesWriteAtBatchCap(t *testing.T) {
	local := make([]model.Job, 0, MaxBatchJobs+50)
	for i := 0; i < MaxBatchJobs+50; i++ {
		local = append(local, docJob(fmt.Sprintf("job-%04d", i), int64(i), ""))
	}

	store := &fakeStore{}
	s := NewDocumentSyncer(store, nil)

	merged, err := s.Sync(context.Background(), local)
	require.NoError(t, err)

	// Bounded-loss policy: the write is capped, the returned merged
	// collection is not.
	assert.Len(t, merged, MaxBatchJobs+50)
	assert.Len(t, store.written, MaxBatchJobs)

	// Newest jobs survive the truncation.
	assert.Equal(t, fmt.Sprintf("job-%04d", MaxBatchJobs+49), store.written[0].ID)
}

func TestDocumentSyncer_PassesCorruptImagesThrough(t *testing.T) {
	// Normalization is fail-soft: undecodable payloads go out unchanged.
	local := []model.Job{docJob("a", 1, "")}
	local[0].IntakeImage = "data:image/png;base64,@@@@"
	local[0].DamageImages = []string{"not an image"}

	store := &fakeStore{}
	s := NewDocumentSyncer(store, nil)

	_, err := s.Sync(context.Background(), local)
	require.NoError(t, err)

	require.Len(t, store.written, 1)
	assert.Equal(t, "data:image/png;base64,@@@@", store.written[0].IntakeImage)
	assert.Equal(t, []string{"not an image"}, store.written[0].DamageImages)
}

func TestForSettings_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		kind backend.Kind
	}{
		{"firestore unconfigured", backend.KindFirestore},
		{"sheets unconfigured", backend.KindSheets},
		{"unknown backend", backend.Kind("carrier-pigeon")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ForSettings(model.AppSettings{}, tt.kind, nil)
			require.Error(t, err)
			assert.True(t, backend.IsConfigError(err))
		})
	}
}

func TestForSettings_BuildsSyncers(t *testing.T) {
	settings := model.AppSettings{
		Firestore: model.FirestoreConfig{ProjectID: "proj", APIKey: "key"},
		Sheets:    model.SheetsConfig{SpreadsheetID: "sheet", AccessToken: "tok"},
	}

	fs, err := ForSettings(settings, backend.KindFirestore, nil)
	require.NoError(t, err)
	assert.IsType(t, &DocumentSyncer{}, fs)

	sh, err := ForSettings(settings, backend.KindSheets, nil)
	require.NoError(t, err)
	assert.IsType(t, &SheetSyncer{}, sh)
}
