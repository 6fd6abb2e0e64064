package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
	"github.com/aussiebroadwan/staffdash/pkg/jwtx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
)

// devIssuer signs the local development token when no identity provider is
// configured.
const devIssuer = "staffdash-dev"

// Sessions is everything the HTTP layer needs to identify callers.
type Sessions struct {
	Authenticator sessionx.Authenticator
	Keys          *jwtx.KeySet // nil when bearer tokens are disabled
	Refresher     *KeyRefresher
	DevSigner     jwtx.Signer // set only in development without a provider
}

// InitSessions builds the authenticator chain.
//
// Sources, in order of precedence:
//   - Bearer tokens verified against the identity provider JWKS at
//     AUTH_JWKS_URL, refreshed every AUTH_JWKS_REFRESH_INTERVAL.
//   - The dashboard session cookie, when SESSION_SECRET is set.
//
// In development with neither configured, an ephemeral EdDSA key is
// generated so tokens can be minted locally.
func InitSessions(ctx context.Context, cfg Config, logger *slog.Logger) (*Sessions, error) {
	s := &Sessions{}
	var chain sessionx.Chain

	issuer, audience := cfg.AuthIssuer, cfg.AuthAudience

	switch {
	case cfg.JWKSURL != "":
		s.Keys = jwtx.NewKeySet()
		s.Refresher = &KeyRefresher{
			Keys:     s.Keys,
			URL:      cfg.JWKSURL,
			Interval: cfg.JWKSRefreshInterval,
			Client:   &http.Client{Timeout: 10 * time.Second},
			Logger:   logger,
		}
		// A failed first fetch is not fatal; readyz stays degraded until
		// the refresher succeeds.
		if err := s.Refresher.Refresh(ctx); err != nil {
			logger.Warn("initial jwks fetch failed", "url", cfg.JWKSURL, "error", err)
		}
		logger.Info("bearer sessions enabled", "jwks_url", cfg.JWKSURL, "issuer", issuer)

	case cfg.SessionSecret == "" && cfg.Env == "development":
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, err
		}
		signer, err := jwtx.NewSignerEdDSA("dev-"+jwtx.NewJTI()[:8], pemKey)
		if err != nil {
			return nil, err
		}
		s.Keys = jwtx.NewKeySet()
		if err := s.Keys.AddSigner(signer); err != nil {
			return nil, err
		}
		s.DevSigner = signer
		issuer = devIssuer
		logger.Warn("no identity provider configured; using an ephemeral development signing key")
	}

	if s.Keys != nil {
		chain = append(chain, sessionx.BearerAuthenticator{
			Verifier: jwtx.NewVerifier(s.Keys, issuer, audience),
		})
	}

	if cfg.SessionSecret != "" {
		cookieStore, err := sessionx.NewCookieStore(cfg.SessionSecret, cfg.SessionCookieSecure)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie store: %w", err)
		}
		chain = append(chain, sessionx.CookieAuthenticator{Store: cookieStore, Name: cfg.SessionCookieName})
		logger.Info("cookie sessions enabled", "cookie", cfg.SessionCookieName, "secure", cfg.SessionCookieSecure)
	}

	if len(chain) == 0 {
		return nil, errors.New("no session source configured: set AUTH_JWKS_URL or SESSION_SECRET")
	}
	s.Authenticator = chain
	return s, nil
}

// DevToken mints a development bearer token for the given user.
func (s *Sessions) DevToken(userID, email, role string, audience []string) (string, error) {
	if s.DevSigner == nil {
		return "", errors.New("no development signer")
	}
	claims := jwtx.NewSessionClaims(userID, email, role, "", devIssuer, audience, 12*time.Hour, time.Now())
	return s.DevSigner.Sign(claims)
}

// KeyRefresher keeps a KeySet in sync with a remote JWKS document.
type KeyRefresher struct {
	Keys     *jwtx.KeySet
	URL      string
	Interval time.Duration
	Client   *http.Client
	Logger   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// Refresh fetches the JWKS once and swaps it in.
func (k *KeyRefresher) Refresh(ctx context.Context) error {
	jwks, err := jwtx.FetchJWKS(ctx, k.Client, k.URL)
	if err != nil {
		return err
	}
	if len(jwks.Keys) == 0 {
		return errors.New("jwks document has no keys")
	}
	if err := k.Keys.ResetFromJWKS(jwks); err != nil {
		return err
	}
	k.Logger.Debug("jwks refreshed", "keys", len(jwks.Keys))
	return nil
}

func (k *KeyRefresher) Start() {
	interval := k.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	k.stopCh = make(chan struct{})
	k.doneCh = make(chan struct{})

	go func() {
		defer close(k.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := k.Refresh(ctx); err != nil {
					k.Logger.Warn("jwks refresh failed; keeping previous keys", "url", k.URL, "error", err)
				}
				cancel()
			case <-k.stopCh:
				return
			}
		}
	}()
}

func (k *KeyRefresher) Stop() {
	if k.stopCh == nil {
		return
	}
	close(k.stopCh)
	<-k.doneCh
}
