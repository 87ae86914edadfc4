package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/jobs"
	"github.com/antelabs/bodyshop/pkg/model"
	"github.com/antelabs/bodyshop/pkg/store"
	syncpkg "github.com/antelabs/bodyshop/pkg/sync"
)

// stubSyncer scripts the orchestrator behind the sync endpoint.
type stubSyncer struct {
	merged  []model.Job
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubSyncer) Sync(ctx context.Context, local []model.Job) ([]model.Job, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.merged, nil
}

func factoryFor(syncer syncpkg.Syncer, err error) SyncerFactory {
	return func(kind backend.Kind) (syncpkg.Syncer, error) {
		if err != nil {
			return nil, err
		}
		return syncer, nil
	}
}

func newTestServer(t *testing.T, factory SyncerFactory) *Server {
	t.Helper()
	service, err := jobs.NewService(store.New(t.TempDir()), nil)
	require.NoError(t, err)
	return New("localhost", 0, service, factory, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createJob(t *testing.T, h http.Handler) model.Job {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/jobs",
		`{"carDetails":{"plate":"1234 ABC","make":"Seat","model":"Ibiza"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var job model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	return job
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, factoryFor(&stubSyncer{}, nil))
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, factoryFor(&stubSyncer{}, nil))
	h := s.Handler()

	job := createJob(t, h)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.StatusIntake, job.Status)

	// List includes it.
	rec := doJSON(t, h, http.MethodGet, "/api/v1/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// Assessment moves intake to assessing.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/jobs/"+job.ID+"/assessment",
		`{"notes":"rear bumper scraped","parts":["paragolpes"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.StatusAssessing, updated.Status)
	assert.Equal(t, []string{"paragolpes"}, updated.IdentifiedParts)

	// Damage image lifecycle.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/jobs/"+job.ID+"/damage-images",
		`{"image":"data:image/png;base64,AAA"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/jobs/"+job.ID+"/damage-images/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Empty(t, updated.DamageImages)

	// Status update.
	rec = doJSON(t, h, http.MethodPut, "/api/v1/jobs/"+job.ID+"/status",
		`{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.StatusCompleted, updated.Status)
}

func TestUpdateRepairTypeAndIntakeImage(t *testing.T) {
	s := newTestServer(t, factoryFor(&stubSyncer{}, nil))
	h := s.Handler()
	job := createJob(t, h)

	rec := doJSON(t, h, http.MethodPut, "/api/v1/jobs/"+job.ID+"/repair-type",
		`{"repairType":"paint"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.RepairPaint, updated.RepairType)

	rec = doJSON(t, h, http.MethodPut, "/api/v1/jobs/"+job.ID+"/intake-image",
		`{"image":"data:image/png;base64,BBB"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "data:image/png;base64,BBB", updated.IntakeImage)

	// Updates against an unknown id map to 404, not a fresh job.
	rec = doJSON(t, h, http.MethodPut, "/api/v1/jobs/nope/repair-type",
		`{"repairType":"both"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestCreateJob_IncompleteIntake(t *testing.T) {
	s := newTestServer(t, factoryFor(&stubSyncer{}, nil))

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/jobs",
		`{"carDetails":{"plate":"1234 ABC"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "INCOMPLETE_INTAKE")
}

func TestGetJob_UnknownID(t *testing.T) {
	s := newTestServer(t, factoryFor(&stubSyncer{}, nil))

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRemoveDamageImage_BadIndex(t *testing.T) {
	s := newTestServer(t, factoryFor(&stubSyncer{}, nil))
	job := createJob(t, s.Handler())

	rec := doJSON(t, s.Handler(), http.MethodDelete, "/api/v1/jobs/"+job.ID+"/damage-images/zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodDelete, "/api/v1/jobs/"+job.ID+"/damage-images/5", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSync_ReplacesLocalState(t *testing.T) {
	merged := []model.Job{{
		ID:              "remote-1",
		CreatedAt:       100,
		Status:          model.StatusIntake,
		DamageImages:    []string{},
		IdentifiedParts: []string{},
		RepairType:      model.RepairBodyWork,
	}}
	s := newTestServer(t, factoryFor(&stubSyncer{merged: merged}, nil))

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"synced"`)

	// The merged collection is now the local list.
	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/jobs", "")
	var list []model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "remote-1", list[0].ID)
}

func TestSync_SingleFlight(t *testing.T) {
	blocking := &stubSyncer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestServer(t, factoryFor(blocking, nil))

	var wg sync.WaitGroup
	wg.Add(1)
	first := httptest.NewRecorder()
	go func() {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
		s.Handler().ServeHTTP(first, req)
	}()

	// Wait until the first sync is inside the orchestrator, then fire a
	// second request.
	<-blocking.started
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "SYNC_IN_FLIGHT")

	close(blocking.release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestSync_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		syncErr    error
		factoryErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not configured",
			factoryErr: &backend.ConfigError{Backend: backend.KindSheets, Missing: "access token"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "NOT_CONFIGURED",
		},
		{
			name:       "unauthorized",
			syncErr:    &backend.BackendError{Backend: backend.KindSheets, Err: backend.ErrUnauthorized},
			wantStatus: http.StatusBadGateway,
			wantCode:   "BACKEND_UNAUTHORIZED",
		},
		{
			name:       "forbidden",
			syncErr:    &backend.BackendError{Backend: backend.KindFirestore, Err: backend.ErrPermissionDenied},
			wantStatus: http.StatusBadGateway,
			wantCode:   "BACKEND_FORBIDDEN",
		},
		{
			name:       "remote missing",
			syncErr:    &backend.BackendError{Backend: backend.KindSheets, Err: backend.ErrNotFound},
			wantStatus: http.StatusBadGateway,
			wantCode:   "BACKEND_NOT_FOUND",
		},
		{
			name:       "throttled",
			syncErr:    &backend.BackendError{Backend: backend.KindSheets, Err: backend.ErrThrottled},
			wantStatus: http.StatusBadGateway,
			wantCode:   "BACKEND_THROTTLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, factoryFor(&stubSyncer{err: tt.syncErr}, tt.factoryErr))

			rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/sync", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, factoryFor(&stubSyncer{}, nil))
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
