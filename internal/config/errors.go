package config

import (
	"errors"
)

// Sentinel error kinds for this package. Load and Watch wrap them so callers
// can tell a broken file from a bad value with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
