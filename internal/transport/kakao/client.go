// Package kakao is a minimal client for the two Kakao OAuth endpoints this
// service needs: authorization-code exchange and profile lookup.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/suwonbread/bready/internal/domain"
)

const (
	defaultAuthBaseURL = "https://kauth.kakao.com"
	defaultAPIBaseURL  = "https://kapi.kakao.com"
)

// Profile is the subset of the Kakao user profile this service stores.
type Profile struct {
	KakaoID      string
	Email        string
	Nickname     string
	ProfileImage string
}

// Config holds Kakao OAuth application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// AuthBaseURL and APIBaseURL override the Kakao endpoints in tests.
	AuthBaseURL string
	APIBaseURL  string
}

// Client talks to the Kakao OAuth endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Kakao OAuth client.
func New(cfg Config) *Client {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = defaultAuthBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL returns the URL the frontend redirects the user to.
func (c *Client) AuthorizeURL() string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	return c.cfg.AuthBaseURL + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("code", code)
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.AuthBaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w: %w", err, domain.ErrAuthProvider)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w: %w", err, domain.ErrAuthProvider)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %w", resp.StatusCode, domain.ErrAuthProvider)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token: %w", domain.ErrAuthProvider)
	}
	return parsed.AccessToken, nil
}

// FetchProfile loads the user profile for an access token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+"/v2/user/me", nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("profile request: %w: %w", err, domain.ErrAuthProvider)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("profile endpoint returned %d: %w", resp.StatusCode, domain.ErrAuthProvider)
	}

	var parsed struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w: %w", err, domain.ErrAuthProvider)
	}
	if parsed.ID == 0 {
		return Profile{}, fmt.Errorf("profile response missing id: %w", domain.ErrAuthProvider)
	}

	return Profile{
		KakaoID:      strconv.FormatInt(parsed.ID, 10),
		Email:        parsed.KakaoAccount.Email,
		Nickname:     parsed.KakaoAccount.Profile.Nickname,
		ProfileImage: parsed.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}
