package configstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Maximus17a/BotRexy/internal/storage"
)

var (
	ErrFieldNotAllowed = errors.New("field not allowed")
	ErrInvalidValue    = errors.New("invalid value")
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Update kinds accepted by Decode.
const (
	KindGuild        = "guild"
	KindAutomod      = "automod"
	KindWelcome      = "welcome"
	KindVerification = "verification"
)

// DecodeStrict fills dst from data, rejecting any key dst does not declare.
func DecodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return fmt.Errorf("%w: %s", ErrFieldNotAllowed, strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}

func DecodeGuildPolicyUpdate(data []byte) (storage.GuildPolicyUpdate, error) {
	var update storage.GuildPolicyUpdate
	err := DecodeStrict(data, &update)
	return update, err
}

func DecodeAutomodUpdate(data []byte) (storage.AutomodPolicyUpdate, error) {
	var update storage.AutomodPolicyUpdate
	if err := DecodeStrict(data, &update); err != nil {
		return update, err
	}
	return update, validateAutomod(update)
}

func DecodeWelcomeUpdate(data []byte) (storage.WelcomeUpdate, error) {
	var update storage.WelcomeUpdate
	if err := DecodeStrict(data, &update); err != nil {
		return update, err
	}
	return update, validateWelcome(update)
}

func DecodeVerificationUpdate(data []byte) (storage.VerificationUpdate, error) {
	var update storage.VerificationUpdate
	err := DecodeStrict(data, &update)
	return update, err
}

func validateAutomod(update storage.AutomodPolicyUpdate) error {
	if update.MaxMentions != nil && (*update.MaxMentions < 1 || *update.MaxMentions > 50) {
		return fmt.Errorf("%w: max_mentions must be between 1 and 50", ErrInvalidValue)
	}
	if update.MaxEmojis != nil && (*update.MaxEmojis < 1 || *update.MaxEmojis > 100) {
		return fmt.Errorf("%w: max_emojis must be between 1 and 100", ErrInvalidValue)
	}
	if update.BadWords != nil && len(*update.BadWords) > 500 {
		return fmt.Errorf("%w: at most 500 bad words", ErrInvalidValue)
	}
	return nil
}

func validateWelcome(update storage.WelcomeUpdate) error {
	if update.BackgroundColor != nil && !hexColor.MatchString(*update.BackgroundColor) {
		return fmt.Errorf("%w: background_color must look like #RRGGBB", ErrInvalidValue)
	}
	if update.TextColor != nil && !hexColor.MatchString(*update.TextColor) {
		return fmt.Errorf("%w: text_color must look like #RRGGBB", ErrInvalidValue)
	}
	if update.Message != nil && len(*update.Message) > 2000 {
		return fmt.Errorf("%w: message longer than 2000 characters", ErrInvalidValue)
	}
	if update.BackgroundImageURL != nil && *update.BackgroundImageURL != "" &&
		!strings.HasPrefix(*update.BackgroundImageURL, "https://") && !strings.HasPrefix(*update.BackgroundImageURL, "http://") {
		return fmt.Errorf("%w: background_image_url must be http(s)", ErrInvalidValue)
	}
	return nil
}
