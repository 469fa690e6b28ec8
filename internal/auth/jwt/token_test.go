package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(TokenConfig{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	p := Participant{ID: uuid.New(), DisplayName: "Lucía", IsGuest: true}

	token, err := m.GenerateAccessToken(p)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.ParticipantID)
	assert.Equal(t, "Lucía", claims.DisplayName)
	assert.True(t, claims.IsGuest)
	assert.Equal(t, "spanish-quiz", claims.Issuer)
	assert.Equal(t, p.ID.String(), claims.Subject)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	m := testManager()
	p := Participant{ID: uuid.New()}

	access, err := m.GenerateAccessToken(p)
	require.NoError(t, err)
	refresh, err := m.GenerateRefreshToken(p)
	require.NoError(t, err)

	_, err = m.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := testManager()
	issued := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateAccessToken(Participant{ID: uuid.New()})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestGarbageToken(t *testing.T) {
	_, err := testManager().ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshSecretDefaultsToAccessSecret(t *testing.T) {
	m := NewManager(TokenConfig{AccessSecret: []byte("only-secret")})
	token, err := m.GenerateRefreshToken(Participant{ID: uuid.New()})
	require.NoError(t, err)

	_, err = m.ValidateRefreshToken(token)
	assert.NoError(t, err)
	assert.Equal(t, time.Hour, m.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, m.RefreshTTL())
}
