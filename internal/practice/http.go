package practice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/auth"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/export"
	httperrors "github.com/gokatarajesh/spanish-quiz/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for practice sessions. Every route
// requires claims injected by auth.AuthMiddleware.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for practice endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "practice_http").Logger(),
	}
}

// Register mounts the practice routes on mux.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.Handle("POST /v1/sessions", auth.RequireAuth(http.HandlerFunc(h.CreateSession)))
	mux.Handle("GET /v1/sessions/current", auth.RequireAuth(http.HandlerFunc(h.GetSession)))
	mux.Handle("DELETE /v1/sessions/current", auth.RequireAuth(http.HandlerFunc(h.DiscardSession)))
	mux.Handle("POST /v1/sessions/current/{action}", auth.RequireAuth(http.HandlerFunc(h.SessionAction)))
	mux.Handle("GET /v1/sessions/current/export", auth.RequireAuth(http.HandlerFunc(h.ExportSession)))
	mux.Handle("GET /v1/results", auth.RequireAuth(http.HandlerFunc(h.ListResults)))
}

// CreateSession handles POST /v1/sessions
func (h *HTTPHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "difficulty must be beginner, intermediate or advanced", "difficulty")
		return
	}
	if req.Count < 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "count must not be negative", "count")
		return
	}

	view, err := h.service.Create(r.Context(), auth.ParticipantID(r.Context()), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /v1/sessions/current
func (h *HTTPHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Snapshot(r.Context(), auth.ParticipantID(r.Context()))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// DiscardSession handles DELETE /v1/sessions/current
func (h *HTTPHandlers) DiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(auth.ParticipantID(r.Context())); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type answerRequest struct {
	Index *int `json:"index"`
}

// SessionAction handles POST /v1/sessions/current/{action}
func (h *HTTPHandlers) SessionAction(w http.ResponseWriter, r *http.Request) {
	participantID := auth.ParticipantID(r.Context())

	var (
		view View
		err  error
	)
	switch action := r.PathValue("action"); action {
	case "start":
		view, err = h.service.Start(participantID)
	case "answer":
		var req answerRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		if req.Index == nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "index is required", "index")
			return
		}
		view, err = h.service.Submit(participantID, *req.Index)
	case "skip":
		view, err = h.service.Skip(participantID)
	case "pause":
		view, err = h.service.Pause(participantID)
	case "resume":
		view, err = h.service.Resume(participantID)
	case "reset":
		view, err = h.service.Reset(participantID)
	case "hint":
		var hint string
		hint, view, err = h.service.Hint(participantID)
		if err == nil {
			h.respondJSON(w, http.StatusOK, map[string]any{"hint": hint, "session": view})
			return
		}
	default:
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, fmt.Sprintf("Unknown session action %q", action))
		return
	}

	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// ExportSession handles GET /v1/sessions/current/export?format=csv|json|xlsx
func (h *HTTPHandlers) ExportSession(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		httperrors.RespondErrorWithDetails(w, http.StatusBadRequest, httperrors.ErrCodeUnsupportedFormat, err.Error(),
			map[string]any{"formats": []export.Format{export.FormatCSV, export.FormatJSON, export.FormatXLSX}})
		return
	}

	participantID := auth.ParticipantID(r.Context())
	download, err := h.service.Export(r.Context(), participantID, format)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, download.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(download.Body); err != nil {
		h.logger.Warn().Err(err).Str("participant_id", participantID.String()).Msg("export write failed")
	}
}

// ListResults handles GET /v1/results?limit=&answers=true
func (h *HTTPHandlers) ListResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "limit must be a non-negative integer", "limit")
			return
		}
		limit = n
	}
	withAnswers, _ := strconv.ParseBool(r.URL.Query().Get("answers"))

	participantID := auth.ParticipantID(r.Context())
	results, err := h.service.ListResults(r.Context(), participantID, limit, withAnswers)
	if err != nil {
		if errors.Is(err, ErrResultsUnavailable) {
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Result history is not configured")
			return
		}
		h.logger.Error().Err(err).Str("participant_id", participantID.String()).Msg("list results failed")
		httperrors.RespondInternalError(w, "Could not load results")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error().Err(err).Msg("practice request failed")
		httperrors.RespondInternalError(w, "Internal error")
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		h.logger.Warn().Err(err).Msg("question bank unavailable")
		httperrors.RespondError(w, status, code, err.Error())
	default:
		httperrors.RespondError(w, status, code, err.Error())
	}
}

// classify maps service errors onto HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNoSession):
		return http.StatusNotFound, httperrors.ErrCodeSessionNotFound
	case quiz.IsInvalidTransition(err):
		return http.StatusConflict, httperrors.ErrCodeInvalidTransition
	case quiz.IsInvalidAnswer(err):
		return http.StatusBadRequest, httperrors.ErrCodeInvalidAnswer
	case quiz.IsInvalidQuestionBank(err):
		return http.StatusBadGateway, httperrors.ErrCodeInvalidQuestionBank
	case errors.Is(err, quiz.ErrSessionNotComplete):
		return http.StatusConflict, httperrors.ErrCodeSessionNotComplete
	case errors.Is(err, questionbank.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable, httperrors.ErrCodeServiceUnavailable
	case errors.Is(err, ErrBankUnavailable):
		return http.StatusBadGateway, httperrors.ErrCodeUpstreamError
	default:
		return http.StatusInternalServerError, httperrors.ErrCodeInternalError
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
