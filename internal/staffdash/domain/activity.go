package domain

import "time"

// ActivityListLimit caps how many entries a listing returns.
const ActivityListLimit = 50

// Activity types recorded by the service.
const (
	ActivityTwoFactorSetupStarted  = "2fa_setup_started"
	ActivityTwoFactorEnabled       = "2fa_enabled"
	ActivityTwoFactorConfirmFailed = "2fa_confirm_failed"
	ActivityTwoFactorDisabled      = "2fa_disabled"
	ActivityTwoFactorSetupExpired  = "2fa_setup_expired"
	ActivityTwoFactorVerified      = "2fa_verified"
	ActivityTwoFactorVerifyFailed  = "2fa_verify_failed"
	ActivityRecoveryCodesGenerated = "recovery_codes_generated"
	ActivityRecoveryCodeUsed       = "recovery_code_used"
	ActivityUserCreated            = "user_created"
	ActivityUserDeactivated        = "user_deactivated"
	ActivityUserActivated          = "user_activated"
)

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	ActivityType string            `json:"activityType"`
	Timestamp    time.Time         `json:"timestamp"`
	IPAddress    string            `json:"ipAddress,omitempty"`
	UserAgent    string            `json:"userAgent,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

// RequestMeta is the client information attached to activity entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
