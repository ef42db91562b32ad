package config

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig      = errors.New("invalid config")
	ErrLoadConfig         = errors.New("load config failed")
	ErrMissingCredentials = errors.New("missing credentials")
)

// MissingCredentialsError lists config keys that must be set for the selected backends.
type MissingCredentialsError struct {
	Keys []string
}

func (e *MissingCredentialsError) Error() string {
	return ErrMissingCredentials.Error() + ": " + strings.Join(e.Keys, ", ")
}

// Unwrap lets errors.Is match ErrMissingCredentials.
func (e *MissingCredentialsError) Unwrap() error { return ErrMissingCredentials }

// Has reports whether key is among the missing ones.
func (e *MissingCredentialsError) Has(key string) bool {
	for _, k := range e.Keys {
		if k == key {
			return true
		}
	}
	return false
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
