package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/auth/jwt"
)

const maxDisplayNameLength = 32

var ErrDisplayNameTooLong = fmt.Errorf("display name longer than %d characters", maxDisplayNameLength)

// Service issues and validates participant tokens.
type Service struct {
	store    ParticipantStore
	tokenMgr *jwt.Manager
	logger   zerolog.Logger
	now      func() time.Time
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
	Store       ParticipantStore
}

// NewService creates an authentication service.
func NewService(opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		store:    opts.Store,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		logger:   logger.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

// CreateGuest creates an ephemeral guest participant.
func (s *Service) CreateGuest(ctx context.Context, req GuestRequest) (*Participant, *TokenPair, error) {
	name := strings.TrimSpace(req.DisplayName)
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return nil, nil, ErrDisplayNameTooLong
	}

	p := &Participant{
		ID:          uuid.New(),
		DisplayName: name,
		IsGuest:     true,
		CreatedAt:   s.now().UTC(),
	}
	if p.DisplayName == "" {
		p.DisplayName = "Invitado-" + p.ID.String()[:8]
	}

	if s.store != nil {
		if err := s.store.Save(ctx, *p, s.tokenMgr.RefreshTTL()); err != nil {
			return nil, nil, fmt.Errorf("save guest: %w", err)
		}
	}

	tokens, err := s.generateTokenPair(*p)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("participant_id", p.ID.String()).Msg("guest created")
	return p, tokens, nil
}

// RefreshToken issues a new pair from a refresh token. The guest record must still exist.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	p := Participant{ID: claims.ParticipantID, DisplayName: claims.DisplayName, IsGuest: claims.IsGuest}
	if s.store != nil {
		stored, err := s.store.Get(ctx, claims.ParticipantID)
		if err != nil {
			if errors.Is(err, ErrParticipantNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load participant: %w", err)
		}
		p = stored
		if err := s.store.Save(ctx, p, s.tokenMgr.RefreshTTL()); err != nil {
			s.logger.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("extend guest ttl failed")
		}
	}

	return s.generateTokenPair(p)
}

// ValidateToken validates an access token and returns participant claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

// Participant loads the stored guest record, falling back to the token claims when no store is configured.
func (s *Service) Participant(ctx context.Context, claims *jwt.Claims) (Participant, error) {
	if s.store == nil {
		return Participant{ID: claims.ParticipantID, DisplayName: claims.DisplayName, IsGuest: claims.IsGuest}, nil
	}
	return s.store.Get(ctx, claims.ParticipantID)
}

func (s *Service) generateTokenPair(p Participant) (*TokenPair, error) {
	jp := jwt.Participant{ID: p.ID, DisplayName: p.DisplayName, IsGuest: p.IsGuest}

	accessToken, err := s.tokenMgr.GenerateAccessToken(jp)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(jp)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}
