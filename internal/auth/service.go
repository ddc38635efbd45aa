package auth

import (
	"context"
	"errors"
	"time"

	"github.com/luxe-funds/luxe_funds/internal/config"
	"github.com/luxe-funds/luxe_funds/internal/identity"
)

// Service issues and refreshes token pairs. A per-user token version lets
// logout and password changes invalidate everything previously issued.
type Service struct {
	cfg  config.Config
	repo identity.Repository
}

// NewService builds the token service.
func NewService(cfg config.Config, repo identity.Repository) *Service {
	return &Service{cfg: cfg, repo: repo}
}

// TokenPair is the login result.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues an access/refresh pair for an authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, err := s.sign(user, []byte(s.cfg.JWTSecret), s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user, []byte(s.cfg.RefreshSecret), s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh validates a refresh token and issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseHS256(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}
	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", 0, errors.New("token invalidated")
	}
	access, err := s.sign(user, []byte(s.cfg.JWTSecret), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout bumps the token version so all outstanding tokens stop validating.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}

func (s *Service) sign(user identity.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	return SignHS256(Claims{
		Subject:      user.ID,
		Staff:        user.Staff,
		TokenVersion: user.TokenVersion,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(ttl).Unix(),
	}, secret)
}
