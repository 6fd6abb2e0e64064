package dashsdk

import "time"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error" example:"not_found"`
	Message string `json:"message" example:"User not found"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Keys     string `json:"keys,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// SetupResponse carries a freshly generated TOTP secret.
type SetupResponse struct {
	Secret          string `json:"secret" example:"JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"`
	ProvisioningURI string `json:"provisioningUri" example:"otpauth://totp/Staff%20Dashboard:ops@agency.test?secret=JBSWY3DPEHPK3PXP"`
}

// CodeRequest carries a TOTP or recovery code.
type CodeRequest struct {
	Code string `json:"code" validate:"required,min=6,max=16" example:"123456"`
}

type ConfirmResponse struct {
	Success       bool     `json:"success"`
	RecoveryCodes []string `json:"recoveryCodes"`
}

type DisableResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recoveryCodes"`
}

type StatusResponse struct {
	Status                 string `json:"status" enums:"disabled,setup_pending,enabled"`
	Enabled                bool   `json:"enabled"`
	SetupPending           bool   `json:"setupPending"`
	RecoveryCodesRemaining int    `json:"recoveryCodesRemaining"`
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Method  string `json:"method" enums:"totp,recovery_code"`
}

// UserResponse is the sanitized view of a staff account.
type UserResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name,omitempty"`
	Role             string    `json:"role" enums:"admin,billing,user"`
	Active           bool      `json:"active"`
	Avatar           string    `json:"avatar,omitempty"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	Email  string `json:"email" validate:"required,email,max=254" example:"new.hire@agency.test"`
	Name   string `json:"name,omitempty" validate:"max=200"`
	Avatar string `json:"avatar,omitempty" validate:"omitempty,url,max=2048"`
	Role   string `json:"role" validate:"required,oneof=admin billing user" example:"user"`
}

type ActivityEntry struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	ActivityType string            `json:"activityType" example:"2fa_disabled"`
	Timestamp    time.Time         `json:"timestamp"`
	IPAddress    string            `json:"ipAddress,omitempty"`
	UserAgent    string            `json:"userAgent,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

type ActivityResponse struct {
	Activity []ActivityEntry `json:"activity"`
}
