package jwtx_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
	"github.com/aussiebroadwan/staffdash/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://id.example.test"

func newEdDSASigner(t *testing.T, kid string) *jwtx.EdDSASigner {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	return signer
}

func sessionClaims(ttl time.Duration) jwtx.Claims {
	return jwtx.NewSessionClaims(
		"01J9Z7Q3N6V3W8X2Y4Z5A6B7C8",
		"alice@agency.test",
		"admin",
		"Alice",
		exampleIssuer,
		[]string{"staffdash"},
		ttl,
		time.Now().UTC(),
	)
}

func TestVerifyEdDSA(t *testing.T) {
	t.Parallel()

	signer := newEdDSASigner(t, "key-eddsa")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	claims := sessionClaims(5 * time.Minute)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifier(keys, exampleIssuer, []string{"staffdash"})
	got, err := verifier.Verify(token)
	require.NoError(t, err)

	require.Equal(t, claims.Subject, got.Subject)
	require.Equal(t, "alice@agency.test", got.Email)
	require.Equal(t, "admin", got.Role)
	require.Equal(t, "Alice", got.Name)
	require.NotEmpty(t, got.ID)
}

func TestVerifyRS256AndES256(t *testing.T) {
	t.Parallel()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{
		jwtx.NewRSAJWK("rsa-1", "sig", "RS256", &rsaKey.PublicKey),
		jwtx.NewES256JWK("ec-1", "sig", "ES256", &ecKey.PublicKey),
	}}))
	verifier := jwtx.NewVerifier(keys, exampleIssuer, nil)

	t.Run("rs256", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, sessionClaims(time.Minute))
		tok.Header["kid"] = "rsa-1"
		raw, err := tok.SignedString(rsaKey)
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.NoError(t, err)
	})

	t.Run("es256", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodES256, sessionClaims(time.Minute))
		tok.Header["kid"] = "ec-1"
		raw, err := tok.SignedString(ecKey)
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.NoError(t, err)
	})

	t.Run("alg does not match key type", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodES256, sessionClaims(time.Minute))
		tok.Header["kid"] = "rsa-1"
		raw, err := tok.SignedString(ecKey)
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})
}

func TestVerifyFailures(t *testing.T) {
	t.Parallel()

	signer := newEdDSASigner(t, "key-a")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	sign := func(c jwtx.Claims) string {
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		return tok
	}

	t.Run("wrong issuer", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, "https://other.test", nil)
		_, err := v.Verify(sign(sessionClaims(time.Minute)))
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, exampleIssuer, []string{"billing"})
		_, err := v.Verify(sign(sessionClaims(time.Minute)))
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, exampleIssuer, nil)
		_, err := v.Verify(sign(sessionClaims(-time.Hour)))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("missing email", func(t *testing.T) {
		c := sessionClaims(time.Minute)
		c.Email = ""
		v := jwtx.NewVerifier(keys, exampleIssuer, nil)
		_, err := v.Verify(sign(c))
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("unknown kid", func(t *testing.T) {
		stranger := newEdDSASigner(t, "key-unknown")
		tok, err := stranger.Sign(sessionClaims(time.Minute))
		require.NoError(t, err)

		v := jwtx.NewVerifier(keys, exampleIssuer, nil)
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("garbage", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, exampleIssuer, nil)
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}
