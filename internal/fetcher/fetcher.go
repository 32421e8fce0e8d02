// Package fetcher downloads remote resources over HTTP and decodes JSON bodies.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download issues a GET for url and returns the response body.
	// The caller must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
