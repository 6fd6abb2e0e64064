package service

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultIssuer labels entries in authenticator apps when none is configured.
const DefaultIssuer = "Staff Dashboard"

// TOTPKey is a freshly generated secret and its otpauth:// URI.
type TOTPKey struct {
	Secret string
	URI    string
}

// TOTPProvider generates and validates RFC 6238 codes. The zero value uses
// SHA1, 6 digits, a 30 second period and a skew of one step.
type TOTPProvider struct {
	Issuer    string
	Period    uint
	Skew      uint
	Digits    otp.Digits
	Algorithm otp.Algorithm
}

func NewTOTPProvider(issuer string) *TOTPProvider {
	return &TOTPProvider{
		Issuer:    issuer,
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Generate creates a new key labelled with accountName.
func (p *TOTPProvider) Generate(accountName string) (TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer(),
		AccountName: accountName,
		Period:      p.period(),
		Digits:      p.digits(),
		Algorithm:   p.algorithm(),
	})
	if err != nil {
		return TOTPKey{}, err
	}
	return TOTPKey{Secret: key.Secret(), URI: key.URL()}, nil
}

// Validate checks code against secret at now, accepting adjacent steps.
func (p *TOTPProvider) Validate(secret, code string, now time.Time) bool {
	_, ok := p.Match(secret, code, now)
	return ok
}

// Match is Validate that also reports which time step the code belongs to,
// so callers can refuse a step that was already used.
func (p *TOTPProvider) Match(secret, code string, now time.Time) (int64, bool) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) != p.digits().Length() {
		return 0, false
	}

	period := int64(p.period())
	skew := int64(p.skew())
	current := now.Unix() / period

	var (
		matched int64
		found   bool
	)
	for step := current - skew; step <= current+skew; step++ {
		want, err := totp.GenerateCodeCustom(secret, time.Unix(step*period, 0).UTC(), totp.ValidateOpts{
			Period:    p.period(),
			Digits:    p.digits(),
			Algorithm: p.algorithm(),
		})
		if err != nil {
			return 0, false
		}
		// no early exit so every step costs the same
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 && !found {
			matched, found = step, true
		}
	}
	return matched, found
}

// Code returns the current code for secret. Used by tests and the dev CLI.
func (p *TOTPProvider) Code(secret string, now time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, now, totp.ValidateOpts{
		Period:    p.period(),
		Digits:    p.digits(),
		Algorithm: p.algorithm(),
	})
}

func (p *TOTPProvider) issuer() string {
	if strings.TrimSpace(p.Issuer) == "" {
		return DefaultIssuer
	}
	return p.Issuer
}

func (p *TOTPProvider) period() uint {
	if p.Period == 0 {
		return 30
	}
	return p.Period
}

func (p *TOTPProvider) skew() uint {
	if p.Skew == 0 {
		return 1
	}
	return p.Skew
}

func (p *TOTPProvider) digits() otp.Digits {
	if p.Digits == 0 {
		return otp.DigitsSix
	}
	return p.Digits
}

func (p *TOTPProvider) algorithm() otp.Algorithm {
	if p.Algorithm == 0 {
		return otp.AlgorithmSHA1
	}
	return p.Algorithm
}
