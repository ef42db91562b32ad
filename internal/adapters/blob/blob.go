// Package blob stores binary objects such as winner photos and returns
// retrievable URLs.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gosimple/slug"
)

// Sentinel kinds for blob errors.
var (
	ErrNotConfigured = errors.New("blob store not configured")
	ErrEmpty         = errors.New("empty upload")
)

// Store uploads objects.
type Store interface {
	// Put stores body under key and returns a URL that serves it.
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// WinnerPhotoKey builds the object key of a winner photo:
// winners/{winnerID}/{slug of file stem}{lowercase extension}.
func WinnerPhotoKey(winnerID, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" {
		stem = "photo"
	}
	return "winners/" + slug.Make(winnerID) + "/" + stem + ext
}
