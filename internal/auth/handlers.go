package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/spanish-quiz/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for participant identity.
type HTTPHandlers struct {
	authSvc *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for auth endpoints.
func NewHTTPHandlers(authSvc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		authSvc: authSvc,
		logger:  logger,
	}
}

// Register mounts the auth routes on mux. GetMe requires the auth middleware upstream.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/guest", h.CreateGuest)
	mux.HandleFunc("POST /v1/auth/refresh", h.RefreshToken)
	mux.Handle("GET /v1/users/me", RequireAuth(http.HandlerFunc(h.GetMe)))
}

// CreateGuest handles POST /v1/auth/guest
func (h *HTTPHandlers) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req GuestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
	}

	p, tokens, err := h.authSvc.CreateGuest(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrDisplayNameTooLong) {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "display_name")
			return
		}
		h.logger.Error().Err(err).Msg("guest creation failed")
		httperrors.RespondInternalError(w, "Could not create guest")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]any{
		"participant_id": p.ID.String(),
		"display_name":   p.DisplayName,
		"access_token":   tokens.AccessToken,
		"refresh_token":  tokens.RefreshToken,
		"expires_in":     tokens.ExpiresIn,
	})
}

// RefreshToken handles POST /v1/auth/refresh
func (h *HTTPHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.RefreshToken == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "refresh_token is required", "refresh_token")
		return
	}

	tokens, err := h.authSvc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeRefreshFailed, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, tokens)
}

// GetMe handles GET /v1/users/me
func (h *HTTPHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	p, err := h.authSvc.Participant(r.Context(), claims)
	if err != nil {
		if errors.Is(err, ErrParticipantNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Participant not found")
			return
		}
		h.logger.Error().Err(err).Msg("load participant failed")
		httperrors.RespondInternalError(w, "Could not load participant")
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
