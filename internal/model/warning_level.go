package model

import (
	"fmt"
	"strings"
)

// WarningLevel is ordered: information < warning < danger.
type WarningLevel int

const (
	WarningInformation WarningLevel = iota
	WarningWarning
	WarningDanger
)

var warningLevelNames = [...]string{"information", "warning", "danger"}

func (l WarningLevel) Valid() bool {
	return l >= WarningInformation && l <= WarningDanger
}

func (l WarningLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("WarningLevel(%d)", int(l))
	}
	return warningLevelNames[l]
}

func ParseWarningLevel(raw string) (WarningLevel, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, candidate := range warningLevelNames {
		if candidate == name {
			return WarningLevel(i), nil
		}
	}
	return WarningInformation, fmt.Errorf("%w: unknown warning level %q", ErrInvalidInput, raw)
}

func (l WarningLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: warning level %d out of range", ErrInvalidInput, int(l))
	}
	return []byte(l.String()), nil
}

func (l *WarningLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseWarningLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
