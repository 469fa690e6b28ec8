package practice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/spanish-quiz/internal/auth"
	"github.com/gokatarajesh/spanish-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	httperrors "github.com/gokatarajesh/spanish-quiz/pkg/http/errors"
)

type httpFixture struct {
	ts  *testService
	mux *http.ServeMux
	pid uuid.UUID
}

func newHTTPFixture(t *testing.T, opts ServiceOptions) *httpFixture {
	t.Helper()
	ts := newTestService(t, opts)
	mux := http.NewServeMux()
	NewHTTPHandlers(ts.Service, zerolog.Nop()).Register(mux)
	return &httpFixture{ts: ts, mux: mux, pid: uuid.New()}
}

func (f *httpFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	ctx := auth.WithClaims(req.Context(), &jwt.Claims{ParticipantID: f.pid, IsGuest: true})
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) View {
	t.Helper()
	var v View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHTTPSessionLifecycle(t *testing.T) {
	f := newHTTPFixture(t, ServiceOptions{})

	rec := f.do(t, http.MethodPost, "/v1/sessions", `{"topic":"animales","difficulty":"beginner","count":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, quiz.StateSetup, decodeView(t, rec).State)

	rec = f.do(t, http.MethodPost, "/v1/sessions/current/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "q1", decodeView(t, rec).Question.ID)

	rec = f.do(t, http.MethodPost, "/v1/sessions/current/hint", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hint struct {
		Hint    string `json:"hint"`
		Session View   `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hint))
	assert.Equal(t, "pista 1", hint.Hint)

	rec = f.do(t, http.MethodGet, "/v1/sessions/current/export?format=csv", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeSessionNotComplete, errorCode(t, rec))

	for _, idx := range []string{"0", "1", "2"} {
		rec = f.do(t, http.MethodPost, "/v1/sessions/current/answer", `{"index":`+idx+`}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	v := decodeView(t, rec)
	assert.Equal(t, quiz.StateCompleted, v.State)
	require.NotNil(t, v.Summary)
	assert.Equal(t, 3, v.Summary.Correct)

	rec = f.do(t, http.MethodGet, "/v1/sessions/current/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = f.do(t, http.MethodGet, "/v1/sessions/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quiz.StateCompleted, decodeView(t, rec).State)

	rec = f.do(t, http.MethodDelete, "/v1/sessions/current", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/sessions/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httperrors.ErrCodeSessionNotFound, errorCode(t, rec))
}

func TestHTTPExportUsesOneSnapshot(t *testing.T) {
	f := newHTTPFixture(t, ServiceOptions{})

	rec := f.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/v1/sessions/current/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, idx := range []string{"0", "1", "2"} {
		rec = f.do(t, http.MethodPost, "/v1/sessions/current/answer", `{"index":`+idx+`}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	sessionID := decodeView(t, rec).SessionID

	rec = f.do(t, http.MethodGet, "/v1/sessions/current/export?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="session-`+sessionID+`.json"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, sessionID, rows[3]["session_id"])

	// After a reset the export fails cleanly instead of sending an empty attachment.
	rec = f.do(t, http.MethodPost, "/v1/sessions/current/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/v1/sessions/current/export?format=csv", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, httperrors.ErrCodeSessionNotComplete, errorCode(t, rec))
}

func TestHTTPErrors(t *testing.T) {
	f := newHTTPFixture(t, ServiceOptions{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPost, "/v1/sessions", `{`, http.StatusBadRequest, httperrors.ErrCodeInvalidRequest},
		{"bad difficulty", http.MethodPost, "/v1/sessions", `{"difficulty":"expert"}`, http.StatusBadRequest, httperrors.ErrCodeValidationFailed},
		{"no session", http.MethodPost, "/v1/sessions/current/start", "", http.StatusNotFound, httperrors.ErrCodeSessionNotFound},
		{"unknown action", http.MethodPost, "/v1/sessions/current/dance", "", http.StatusNotFound, httperrors.ErrCodeNotFound},
		{"bad format", http.MethodGet, "/v1/sessions/current/export?format=pdf", "", http.StatusBadRequest, httperrors.ErrCodeUnsupportedFormat},
		{"results unavailable", http.MethodGet, "/v1/results", "", http.StatusServiceUnavailable, httperrors.ErrCodeServiceUnavailable},
		{"bad limit", http.MethodGet, "/v1/results?limit=-1", "", http.StatusBadRequest, httperrors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestHTTPActionErrors(t *testing.T) {
	f := newHTTPFixture(t, ServiceOptions{})
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/sessions", "").Code)

	rec := f.do(t, http.MethodPost, "/v1/sessions/current/pause", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeInvalidTransition, errorCode(t, rec))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/sessions/current/start", "").Code)

	rec = f.do(t, http.MethodPost, "/v1/sessions/current/answer", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperrors.ErrCodeMissingField, errorCode(t, rec))

	rec = f.do(t, http.MethodPost, "/v1/sessions/current/answer", `{"index":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperrors.ErrCodeInvalidAnswer, errorCode(t, rec))
}

func TestHTTPBankFailures(t *testing.T) {
	f := newHTTPFixture(t, ServiceOptions{})

	f.ts.banks.err = questionbank.ErrGeneratorUnavailable
	rec := f.do(t, http.MethodPost, "/v1/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.ts.banks.err = assert.AnError
	rec = f.do(t, http.MethodPost, "/v1/sessions", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, httperrors.ErrCodeUpstreamError, errorCode(t, rec))
}

func TestHTTPListResults(t *testing.T) {
	results := &memoryResults{}
	f := newHTTPFixture(t, ServiceOptions{Results: results})
	_, err := results.Save(t.Context(), resultFor(f.pid, "s-1"))
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/v1/results?limit=5&answers=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []struct {
			SessionID string `json:"session_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "s-1", body.Results[0].SessionID)
}

func TestHTTPRequiresAuth(t *testing.T) {
	f := newHTTPFixture(t, ServiceOptions{})
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/current", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClassify(t *testing.T) {
	status, code := classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, httperrors.ErrCodeInternalError, code)

	status, _ = classify(quiz.ErrInvalidQuestionBank)
	assert.Equal(t, http.StatusBadGateway, status)
}
