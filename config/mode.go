package config

import (
	"os"
	"strings"
)

// ModeKey is the environment variable selecting the configuration mode.
const ModeKey = "GO_ENV_MODE"

// Mode selects which layered configuration files are read.
type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

// ParseMode normalises a mode name; unknown values fall back to DevMode.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode reads the mode from GO_ENV_MODE.
func CurrentMode() Mode {
	return ParseMode(os.Getenv(ModeKey))
}

// aliases returns the file name suffixes that belong to the mode.
func (m Mode) aliases() []string {
	switch m {
	case ProMode:
		return []string{"production", "prod"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}
