//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type guestInfo struct {
	ID           string
	AccessToken  string
	RefreshToken string
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func createGuest(t *testing.T, baseURL, displayName string) guestInfo {
	t.Helper()

	payload := map[string]string{
		"display_name": fmt.Sprintf("%s-%d", displayName, time.Now().UnixNano()%100000),
	}
	resp := doJSON(t, http.MethodPost, baseURL+"/v1/auth/guest", "", payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected guest response status: %d", resp.StatusCode)
	}

	var out struct {
		ParticipantID string `json:"participant_id"`
		AccessToken   string `json:"access_token"`
		RefreshToken  string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode guest response failed: %v", err)
	}

	if out.AccessToken == "" {
		t.Fatalf("empty access token in guest response")
	}

	return guestInfo{
		ID:           out.ParticipantID,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}
}

// doJSON sends body as JSON (nil sends no body) with an optional bearer token.
func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("unexpected status %d (want %d): %s", resp.StatusCode, want, body)
	}
}

type sessionView struct {
	SessionID       string `json:"session_id"`
	State           string `json:"state"`
	CurrentIndex    int    `json:"current_index"`
	TotalQuestions  int    `json:"total_questions"`
	CurrentQuestion *struct {
		ID      string   `json:"id"`
		Options []string `json:"options"`
	} `json:"current_question"`
	Summary *struct {
		Correct  int     `json:"correct"`
		Accuracy float64 `json:"accuracy"`
	} `json:"summary"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
