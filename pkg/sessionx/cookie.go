package sessionx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// DefaultCookieName is the session cookie shared with the dashboard frontend.
const DefaultCookieName = "staffdash_session"

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
	emailKey  = "user_email"
	roleKey   = "user_role"
	nameKey   = "user_name"
)

// CookieAuthenticator reads a gorilla/sessions cookie.
type CookieAuthenticator struct {
	Store sessions.Store
	Name  string
}

// NewCookieStore builds the cookie store both the frontend and this service
// use. In production (secure=true) cookies are Secure + SameSite=None.
func NewCookieStore(secret string, secure bool) (*sessions.CookieStore, error) {
	if secret == "" {
		return nil, errors.New("sessionx: session secret is empty")
	}
	if len(secret) < 32 {
		slog.Warn("session secret is short; 32+ chars recommended", "length", len(secret))
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		MaxAge:   86400 * 7,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	return store, nil
}

func (c CookieAuthenticator) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c CookieAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	if c.Store == nil {
		return Identity{}, ErrNoSession
	}
	if _, err := r.Cookie(c.name()); err != nil {
		return Identity{}, ErrNoSession
	}

	sess, err := c.Store.Get(r, c.name())
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			return Identity{}, fmt.Errorf("%w: cookie failed to decode", ErrInvalidSession)
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	if ok, _ := sess.Values[isAuthKey].(bool); !ok {
		return Identity{}, ErrNoSession
	}

	id := normalise(Identity{
		UserID: stringValue(sess, userIDKey),
		Email:  stringValue(sess, emailKey),
		Role:   stringValue(sess, roleKey),
		Name:   stringValue(sess, nameKey),
		Method: "cookie",
	})
	if id.UserID == "" || id.Email == "" {
		return Identity{}, fmt.Errorf("%w: session missing identity", ErrInvalidSession)
	}
	return id, nil
}

// Save writes id into the session cookie.
func (c CookieAuthenticator) Save(w http.ResponseWriter, r *http.Request, id Identity) error {
	sess, _ := c.Store.Get(r, c.name())
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = id.UserID
	sess.Values[emailKey] = id.Email
	sess.Values[roleKey] = id.Role
	sess.Values[nameKey] = id.Name
	return sess.Save(r, w)
}

func stringValue(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
