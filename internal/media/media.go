// Package media wraps the external object-storage API that hosts post images.
package media

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/hndao/inkpost/internal/storageid"
)

var mediaLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	mediaLogger = l
}

// RemoveResult classifies the outcome of an image deletion. Deleting an
// identifier that no longer exists is a normal result, not an error: the
// coordinator may issue the same delete twice across retries.
type RemoveResult int

const (
	RemoveDeleted RemoveResult = iota
	RemoveNotFound
	RemoveFailed
)

func (r RemoveResult) String() string {
	switch r {
	case RemoveDeleted:
		return "deleted"
	case RemoveNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

type Gateway interface {
	// Upload stores the image bytes under the given folder and returns the
	// hosted URL. Errors propagate unmodified; a failed upload must never
	// yield a placeholder URL.
	Upload(ctx context.Context, file io.Reader, filename, folder string) (string, error)

	// Remove deletes the object addressed by id. RemoveFailed is accompanied
	// by a non-nil error describing the failure; RemoveDeleted and
	// RemoveNotFound carry a nil error.
	Remove(ctx context.Context, id storageid.Identifier) (RemoveResult, error)
}
