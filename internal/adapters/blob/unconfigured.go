package blob

import (
	"context"
	"fmt"
	"io"
)

// Unconfigured is the Store used when credentials are missing.
type Unconfigured struct {
	Reason string
}

// Put implements Store.
func (u Unconfigured) Put(context.Context, string, string, io.Reader) (string, error) {
	if u.Reason == "" {
		return "", ErrNotConfigured
	}
	return "", fmt.Errorf("%w: %s", ErrNotConfigured, u.Reason)
}
