package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/model"
	"github.com/antelabs/bodyshop/pkg/rowcodec"
)

// fakeSheet records the orchestrator's calls against the sheet API.
type fakeSheet struct {
	rows [][]string

	ensureErr error
	readErr   error
	clearErr  error
	appendErr error

	ensuredHeaders []string
	cleared        bool
	appended       [][]string
}

func (f *fakeSheet) EnsureSheet(ctx context.Context, headers []string) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.ensuredHeaders = headers
	return nil
}

func (f *fakeSheet) ReadRows(ctx context.Context) ([][]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.rows, nil
}

func (f *fakeSheet) Clear(ctx context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	return nil
}

func (f *fakeSheet) AppendRows(ctx context.Context, rows [][]string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = rows
	return nil
}

func TestSheetSyncer_BootstrapsAndRewrites(t *testing.T) {
	remoteJob := docJob("r", 50, "from sheet")
	api := &fakeSheet{rows: [][]string{rowcodec.Encode(remoteJob)}}
	s := NewSheetSyncer(api, nil)

	local := []model.Job{docJob("l", 100, "local job")}
	merged, err := s.Sync(context.Background(), local)
	require.NoError(t, err)

	assert.Equal(t, rowcodec.Headers, api.ensuredHeaders)
	assert.True(t, api.cleared)

	require.Len(t, merged, 2)
	assert.Equal(t, "l", merged[0].ID)
	assert.Equal(t, "r", merged[1].ID)

	// Full overwrite: one row per merged job, images stripped.
	require.Len(t, api.appended, 2)
	for _, row := range api.appended {
		require.Len(t, row, len(rowcodec.Headers))
		assert.Equal(t, "[]", row[9])
		assert.Equal(t, "[]", row[10])
	}
}

func TestSheetSyncer_MalformedRowsDegrade(t *testing.T) {
	api := &fakeSheet{rows: [][]string{
		rowcodec.Encode(docJob("good", 10, "ok")),
		{"bad-date", "not-a-number", "junk-status"},
		{}, // decodes without an id, dropped
	}}
	s := NewSheetSyncer(api, nil)

	merged, err := s.Sync(context.Background(), nil)
	require.NoError(t, err)

	// The malformed-but-identified row survives with defaults; the
	// id-less row cannot participate in a merge.
	require.Len(t, merged, 2)
	gotIDs := []string{merged[0].ID, merged[1].ID}
	assert.Contains(t, gotIDs, "good")
	assert.Contains(t, gotIDs, "bad-date")
}

func TestSheetSyncer_TransportErrorsLeaveLocalUntouched(t *testing.T) {
	permErr := &backend.BackendError{
		Op: "ReadRows", Backend: backend.KindSheets, Status: 403, Err: backend.ErrPermissionDenied,
	}

	t.Run("read failure stops before any write", func(t *testing.T) {
		api := &fakeSheet{readErr: permErr}
		s := NewSheetSyncer(api, nil)

		_, err := s.Sync(context.Background(), []model.Job{docJob("l", 1, "")})
		require.Error(t, err)
		assert.True(t, backend.IsPermissionDenied(err))
		assert.False(t, api.cleared)
		assert.Nil(t, api.appended)
	})

	t.Run("bootstrap failure surfaces by status", func(t *testing.T) {
		api := &fakeSheet{ensureErr: &backend.BackendError{
			Op: "EnsureSheet", Backend: backend.KindSheets, Status: 404, Err: backend.ErrNotFound,
		}}
		s := NewSheetSyncer(api, nil)

		_, err := s.Sync(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, backend.IsNotFound(err))
	})

	t.Run("append failure surfaces", func(t *testing.T) {
		api := &fakeSheet{appendErr: &backend.BackendError{
			Op: "AppendRows", Backend: backend.KindSheets, Status: 401, Err: backend.ErrUnauthorized,
		}}
		s := NewSheetSyncer(api, nil)

		_, err := s.Sync(context.Background(), []model.Job{docJob("l", 1, "")})
		require.Error(t, err)
		assert.True(t, backend.IsUnauthorized(err))
	})
}

func TestSheetSyncer_EmptySheetEmptyLocal(t *testing.T) {
	api := &fakeSheet{}
	s := NewSheetSyncer(api, nil)

	merged, err := s.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, merged)
	assert.True(t, api.cleared)
	assert.Empty(t, api.appended)
}
