package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/pkg/serverutils"
	"echo-assistant-be/internal/repository/unitofwork"
	"echo-assistant-be/pkg/graph"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	// ErrSessionExpired means no usable Microsoft token exists for the
	// account; the user has to sign in again.
	ErrSessionExpired   = errors.New("session expired")
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	ErrMissingIDToken   = errors.New("token response has no id_token")
)

type IAuthService interface {
	LoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*dto.LoginResult, error)
	// Credential returns a Graph credential that refreshes itself through the
	// cached refresh token.
	Credential(ctx context.Context, accountID string) (*graph.Credential, error)
	Logout(ctx context.Context, accountID string) error
}

type AuthOptions struct {
	AllowedEmailDomain string
	JwtSecret          []byte
	AppTokenTTL        time.Duration
}

type authService struct {
	oauth      *oauth2.Config
	uowFactory unitofwork.RepositoryFactory
	opts       AuthOptions
	logger     logger.ILogger
}

func NewAuthService(conf *oauth2.Config, uowFactory unitofwork.RepositoryFactory, opts AuthOptions, log logger.ILogger) IAuthService {
	if opts.AppTokenTTL <= 0 {
		opts.AppTokenTTL = time.Hour
	}
	return &authService{oauth: conf, uowFactory: uowFactory, opts: opts, logger: log}
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// identity is read from the id_token without signature verification: it
// came straight from the token endpoint over TLS.
type identity struct {
	AccountID string
	Email     string
}

func parseIDToken(raw string) (identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return identity{}, fmt.Errorf("parse id_token: %w", err)
	}
	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	id := identity{AccountID: str("oid"), Email: str("preferred_username")}
	if id.Email == "" {
		id.Email = str("email")
	}
	if id.AccountID == "" {
		id.AccountID = str("sub")
	}
	if id.AccountID == "" || id.Email == "" {
		return identity{}, errors.New("id_token lacks account or email claims")
	}
	return id, nil
}

func (s *authService) domainAllowed(email string) bool {
	if s.opts.AllowedEmailDomain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(s.opts.AllowedEmailDomain))
}

func (s *authService) HandleCallback(ctx context.Context, code string) (*dto.LoginResult, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("AuthService", "Code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		return nil, ErrMissingIDToken
	}
	id, err := parseIDToken(rawID)
	if err != nil {
		return nil, err
	}

	if !s.domainAllowed(id.Email) {
		s.logger.Warn("AuthService", "Blocked login from unapproved domain", map[string]interface{}{"email": id.Email})
		return nil, ErrDomainNotAllowed
	}

	if err := s.saveToken(ctx, id, tok); err != nil {
		return nil, err
	}

	appToken, err := serverutils.IssueToken(s.opts.JwtSecret, id.AccountID, id.Email, s.opts.AppTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue app token: %w", err)
	}

	s.logger.Info("AuthService", "User signed in", map[string]interface{}{"email": id.Email})
	return &dto.LoginResult{AccessToken: appToken, AccountId: id.AccountID, UserEmail: id.Email}, nil
}

func (s *authService) saveToken(ctx context.Context, id identity, tok *oauth2.Token) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := uow.TokenCacheRepository().Save(ctx, &entity.TokenRecord{
		AccountId: id.AccountID,
		UserEmail: id.Email,
		Token:     tok,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("save token cache: %w", err)
	}
	return nil
}

func (s *authService) Credential(ctx context.Context, accountID string) (*graph.Credential, error) {
	rec, err := s.uowFactory.NewUnitOfWork(ctx).TokenCacheRepository().FindByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load token cache: %w", err)
	}
	if rec == nil || rec.Token == nil {
		return nil, ErrSessionExpired
	}
	id := identity{AccountID: rec.AccountId, Email: rec.UserEmail}

	// Token refreshes silently when the cached one has expired.
	tok, err := s.oauth.TokenSource(ctx, rec.Token).Token()
	if err != nil {
		s.logger.Warn("AuthService", "Silent token refresh failed", map[string]interface{}{"account_id": accountID, "error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if tok.AccessToken != rec.Token.AccessToken {
		if err := s.saveToken(ctx, id, tok); err != nil {
			s.logger.Warn("AuthService", "Failed to persist refreshed token", map[string]interface{}{"error": err.Error()})
		}
	}

	var mu sync.Mutex
	current := tok
	refresh := func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		stale := *current
		stale.Expiry = time.Now().Add(-time.Minute)
		fresh, err := s.oauth.TokenSource(ctx, &stale).Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		current = fresh
		if err := s.saveToken(ctx, id, fresh); err != nil {
			s.logger.Warn("AuthService", "Failed to persist refreshed token", map[string]interface{}{"error": err.Error()})
		}
		return fresh.AccessToken, nil
	}
	return graph.NewCredential(tok.AccessToken, refresh), nil
}

func (s *authService) Logout(ctx context.Context, accountID string) error {
	return s.uowFactory.NewUnitOfWork(ctx).TokenCacheRepository().Delete(ctx, accountID)
}
