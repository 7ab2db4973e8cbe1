package device

import (
	"fmt"
	"strings"
)

// Mode is the document type the device is configured for
type Mode int

const (
	ModeCheck Mode = iota
	ModeMagStripe
	ModeInvalid
)

func (m Mode) String() string {
	switch m {
	case ModeCheck:
		return "CHECK"
	case ModeMagStripe:
		return "MSR"
	default:
		return "INVALID"
	}
}

// ParseMode maps a client supplied document type onto a Mode.
// Unknown values yield ModeInvalid and an error.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CHECK":
		return ModeCheck, nil
	case "MSR", "MAGSTRIPE":
		return ModeMagStripe, nil
	default:
		return ModeInvalid, fmt.Errorf("%w: %s", ErrInvalidMode, s)
	}
}
