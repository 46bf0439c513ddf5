package tui

import (
	"os"

	"golang.org/x/term"
)

// PlainEnv forces unstyled output when set to "1".
const PlainEnv = "ZIPIMPORT_PLAIN"

// Mode is how the run summary is rendered.
type Mode int

const (
	// ModePlain is used for pipes, log files and CI.
	ModePlain Mode = iota
	// ModeStyled is used when a human is watching the terminal.
	ModeStyled
)

// DetectMode decides how to render for f.
//
// Returns ModePlain if:
//   - ZIPIMPORT_PLAIN=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set
//   - f is not a terminal
func DetectMode(f *os.File) Mode {
	if os.Getenv(PlainEnv) == "1" {
		return ModePlain
	}
	if os.Getenv("CI") != "" {
		return ModePlain
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return ModePlain
	}
	return ModeStyled
}
