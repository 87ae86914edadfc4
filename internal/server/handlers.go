package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/jobs"
	"github.com/antelabs/bodyshop/pkg/model"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no job with that id")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CarDetails  model.CarDetails `json:"carDetails"`
		IntakeImage string           `json:"intakeImage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	job, err := s.service.Create(req.CarDetails, req.IntakeImage)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INCOMPLETE_INTAKE", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	job, err := s.service.SetStatus(chi.URLParam(r, "id"), model.ParseJobStatus(req.Status))
	s.respondUpdate(w, job, err)
}

func (s *Server) handleSetRepairType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepairType string `json:"repairType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	job, err := s.service.SetRepairType(chi.URLParam(r, "id"), model.ParseRepairType(req.RepairType))
	s.respondUpdate(w, job, err)
}

func (s *Server) handleAppendAssessment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string   `json:"notes"`
		Parts []string `json:"parts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	job, err := s.service.AppendAssessment(chi.URLParam(r, "id"), req.Notes, req.Parts)
	s.respondUpdate(w, job, err)
}

func (s *Server) handleSetIntakeImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	job, err := s.service.SetIntakeImage(chi.URLParam(r, "id"), req.Image)
	s.respondUpdate(w, job, err)
}

func (s *Server) handleAddDamageImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	job, err := s.service.AddDamageImage(chi.URLParam(r, "id"), req.Image)
	s.respondUpdate(w, job, err)
}

func (s *Server) handleRemoveDamageImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "image index must be an integer")
		return
	}
	job, err := s.service.RemoveDamageImage(chi.URLParam(r, "id"), index)
	s.respondUpdate(w, job, err)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	kind := backend.Kind(r.URL.Query().Get("backend"))
	if kind == "" {
		kind = backend.KindFirestore
	}

	merged, err := s.runSync(r.Context(), kind)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "synced",
		"jobs":   merged,
	})
}

// respondUpdate translates service-layer update results into responses.
func (s *Server) respondUpdate(w http.ResponseWriter, job model.Job, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, job)
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no job with that id")
	default:
		writeError(w, http.StatusUnprocessableEntity, "INVALID_UPDATE", err.Error())
	}
}

// writeSyncError maps the sync error taxonomy onto user-actionable HTTP
// responses. Transport failures from the remote store surface as 502
// with a code that distinguishes credential, permission, and missing-
// resource failures.
func (s *Server) writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errSyncInFlight):
		writeError(w, http.StatusConflict, "SYNC_IN_FLIGHT", "a sync is already running; retry when it finishes")
	case backend.IsConfigError(err):
		writeError(w, http.StatusBadRequest, "NOT_CONFIGURED", err.Error())
	case backend.IsUnauthorized(err):
		writeError(w, http.StatusBadGateway, "BACKEND_UNAUTHORIZED", "backend rejected the credential; the access token may have expired")
	case backend.IsPermissionDenied(err):
		writeError(w, http.StatusBadGateway, "BACKEND_FORBIDDEN", "the credential lacks access to the remote resource")
	case backend.IsNotFound(err):
		writeError(w, http.StatusBadGateway, "BACKEND_NOT_FOUND", "remote resource not found; check the configured id")
	case backend.IsThrottled(err):
		writeError(w, http.StatusBadGateway, "BACKEND_THROTTLED", "backend rate limit hit; retry later")
	default:
		s.logger.Error("Sync failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "SYNC_FAILED", err.Error())
	}
}
