package service

import (
	"fmt"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
)

// recoveryCodeBytes gives 8 hex characters per code.
const recoveryCodeBytes = 4

// GenerateRecoveryCodes returns a fresh set of domain.RecoveryCodeCount
// codes. Duplicates within a set are rerolled.
func GenerateRecoveryCodes() ([]string, error) {
	codes := make([]string, 0, domain.RecoveryCodeCount)
	seen := make(map[string]struct{}, domain.RecoveryCodeCount)
	for len(codes) < domain.RecoveryCodeCount {
		code, err := cryptox.GenerateHexCode(recoveryCodeBytes)
		if err != nil {
			return nil, fmt.Errorf("generate recovery code: %w", err)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}
