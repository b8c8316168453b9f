package host

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type RegistrationMode string

const (
	ModeDisabled RegistrationMode = "disabled"
	ModeDirect   RegistrationMode = "direct"
	ModeApproval RegistrationMode = "approval"
)

var ErrInvalidSettings = errors.New("invalid session settings")

// Settings is the host-owned configuration the core reads on every
// operation. It may change between calls.
type Settings struct {
	PartySize        int              `json:"party_size" validate:"min=1"`
	RotationWidth    int              `json:"rotation_width" validate:"min=1"`
	RegistrationMode RegistrationMode `json:"registration_mode" validate:"oneof=disabled direct approval"`
}

func DefaultSettings() Settings {
	return Settings{PartySize: 5, RotationWidth: 1, RegistrationMode: ModeDisabled}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}
