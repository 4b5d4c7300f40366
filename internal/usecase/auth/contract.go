package auth

import (
	"context"
	"time"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/transport/kakao"
)

// OAuthClient is the Kakao side of the login flow.
type OAuthClient interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (kakao.Profile, error)
}

// UserStore persists accounts.
type UserStore interface {
	GetOrCreateByKakaoID(ctx context.Context, kakaoID, email, name, profileImage string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	TTL() time.Duration
}
