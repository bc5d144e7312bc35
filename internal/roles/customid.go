package roles

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Maximus17a/BotRexy/internal/utils"
)

type Kind string

const (
	KindRole   Kind = "role"
	KindVerify Kind = "verify"

	legacyGamePrefix = "game_role_"
)

var ErrMalformedCustomID = errors.New("malformed custom id")

func EncodeCustomID(kind Kind, roleID string) string {
	return string(kind) + ":" + roleID
}

// DecodeCustomID parses role:<id> and verify:<id>. The legacy game_role_<id>
// form decodes as a role toggle.
func DecodeCustomID(customID string) (Kind, string, error) {
	if strings.HasPrefix(customID, legacyGamePrefix) {
		roleID := strings.TrimPrefix(customID, legacyGamePrefix)
		if !utils.IsSnowflake(roleID) {
			return "", "", fmt.Errorf("%w: %q", ErrMalformedCustomID, customID)
		}
		return KindRole, roleID, nil
	}

	prefix, roleID, ok := strings.Cut(customID, ":")
	if !ok || !utils.IsSnowflake(roleID) {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedCustomID, customID)
	}
	switch kind := Kind(prefix); kind {
	case KindRole, KindVerify:
		return kind, roleID, nil
	default:
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrMalformedCustomID, prefix)
	}
}
