package migration

import (
	"fmt"
	"strings"
)

// Mode selects the direction of a class run.
type Mode string

// Mode enumerations.
const (
	ModeExport  Mode = "export"
	ModeImport  Mode = "import"
	ModeMigrate Mode = "migrate"
)

const unsupportedModeTemplateConstant = "unsupported mode %q"

// ModeChoices lists the accepted mode flag values.
func ModeChoices() []string {
	return []string{string(ModeExport), string(ModeImport), string(ModeMigrate)}
}

// ParseMode interprets a textual mode selection.
func ParseMode(candidateMode string) (Mode, error) {
	normalizedMode := strings.ToLower(strings.TrimSpace(candidateMode))
	switch normalizedMode {
	case string(ModeExport):
		return ModeExport, nil
	case string(ModeImport):
		return ModeImport, nil
	case string(ModeMigrate):
		return ModeMigrate, nil
	default:
		return "", fmt.Errorf(unsupportedModeTemplateConstant, candidateMode)
	}
}

// ReadsSource reports whether the mode enumerates the source scope.
func (mode Mode) ReadsSource() bool {
	return mode == ModeExport || mode == ModeMigrate
}

// WritesTarget reports whether the mode writes into the target scope.
func (mode Mode) WritesTarget() bool {
	return mode == ModeImport || mode == ModeMigrate
}
