// Package auth implements Kakao OAuth login and session lookup.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/suwonbread/bready/internal/domain"
)

// Session is the outcome of a successful login.
type Session struct {
	Token string
	TTL   time.Duration
	User  domain.User
}

// Service runs the login flow.
type Service struct {
	oauth  OAuthClient
	users  UserStore
	tokens TokenIssuer
}

// New creates an auth service.
func New(oauth OAuthClient, users UserStore, tokens TokenIssuer) *Service {
	return &Service{oauth: oauth, users: users, tokens: tokens}
}

// LoginURL returns the Kakao authorization URL to redirect the user to.
func (s *Service) LoginURL() string {
	return s.oauth.AuthorizeURL()
}

// Login trades the authorization code for a profile, upserts the account,
// and issues a session token.
func (s *Service) Login(ctx context.Context, code string) (Session, error) {
	if strings.TrimSpace(code) == "" {
		return Session{}, fmt.Errorf("authorization code is empty: %w", domain.ErrValidation)
	}

	accessToken, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return Session{}, fmt.Errorf("exchange code: %w", err)
	}

	profile, err := s.oauth.FetchProfile(ctx, accessToken)
	if err != nil {
		return Session{}, fmt.Errorf("fetch profile: %w", err)
	}

	user, err := s.users.GetOrCreateByKakaoID(ctx,
		profile.KakaoID, profile.Email, profile.Nickname, profile.ProfileImage)
	if err != nil {
		return Session{}, fmt.Errorf("upsert user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}

	return Session{Token: token, TTL: s.tokens.TTL(), User: user}, nil
}

// Me returns the account behind a verified session.
func (s *Service) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load account: %w", err)
	}
	return user, nil
}
