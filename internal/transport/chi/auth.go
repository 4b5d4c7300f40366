package chi

import (
	"context"
	"net/http"
	"time"
)

type userCtxKey struct{}

// userID extracts the authenticated user id set by requireSession.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userCtxKey{}).(string)
	return id
}

// requireSession validates the session cookie and stores the user id in the
// request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.session.CookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing session")
			return
		}

		uid, err := s.tokens.Verify(cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid session")
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type userItem struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// handleKakaoLogin redirects the browser to the Kakao authorization page.
func (s *Server) handleKakaoLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.auth.LoginURL(), http.StatusFound)
}

// handleKakaoCallback finishes the OAuth flow, sets the session cookie, and
// sends the browser back to the frontend.
func (s *Server) handleKakaoCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	sess, err := s.auth.Login(r.Context(), code)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(sess.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if s.session.FrontendURL != "" {
		http.Redirect(w, r, s.session.FrontendURL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_in"})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Me(r.Context(), userID(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userItem{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		ProfileImage: user.ProfileImage,
		CreatedAt:    user.CreatedAt,
	})
}
