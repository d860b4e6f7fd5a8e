package port

import (
	"context"
	"io"
)

type ObjectStore interface {
	// Upload stores body under name and returns its public URL
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}
