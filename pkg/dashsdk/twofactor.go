package dashsdk

import (
	"context"
	"net/http"
)

// BeginSetup starts (or restarts) two-factor enrollment.
func (c *Client) BeginSetup(ctx context.Context) (*SetupResponse, error) {
	var out SetupResponse
	if err := c.do(ctx, http.MethodPost, "/2fa/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmSetup finishes enrollment and returns the initial recovery codes.
func (c *Client) ConfirmSetup(ctx context.Context, code string) ([]string, error) {
	var out ConfirmResponse
	if err := c.do(ctx, http.MethodPost, "/2fa/confirm", CodeRequest{Code: code}, &out); err != nil {
		return nil, err
	}
	return out.RecoveryCodes, nil
}

func (c *Client) DisableTwoFactor(ctx context.Context) (*DisableResponse, error) {
	var out DisableResponse
	if err := c.do(ctx, http.MethodPost, "/2fa/disable", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateRecoveryCodes replaces the caller's recovery codes.
func (c *Client) GenerateRecoveryCodes(ctx context.Context) ([]string, error) {
	var out RecoveryCodesResponse
	if err := c.do(ctx, http.MethodPost, "/2fa/recovery-codes/generate", nil, &out); err != nil {
		return nil, err
	}
	return out.RecoveryCodes, nil
}

func (c *Client) ListRecoveryCodes(ctx context.Context) ([]string, error) {
	var out RecoveryCodesResponse
	if err := c.do(ctx, http.MethodGet, "/2fa/recovery-codes", nil, &out); err != nil {
		return nil, err
	}
	return out.RecoveryCodes, nil
}

func (c *Client) TwoFactorStatus(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/2fa/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks a TOTP or recovery code and reports which one matched.
func (c *Client) Verify(ctx context.Context, code string) (string, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/2fa/verify", CodeRequest{Code: code}, &out); err != nil {
		return "", err
	}
	return out.Method, nil
}
