package agent

import (
	"fmt"
	"strings"
)

// Mode selects who drives the ticks of an agent.
type Mode int

const (
	// Manual agents tick only when Tick is called.
	Manual Mode = iota
	// Auto agents schedule their own tick every interval.
	Auto
)

func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "manual" or "auto", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual", "":
		return Manual, nil
	case "auto":
		return Auto, nil
	default:
		return Manual, fmt.Errorf("unknown agent mode %q", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
