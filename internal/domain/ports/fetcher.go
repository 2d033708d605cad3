package ports

import (
	"context"
	"io"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// Fetcher opens the byte stream behind one encoding. The returned reader
// streams track bytes as they arrive upstream; callers own the close.
type Fetcher interface {
	Open(ctx context.Context, enc domain.Encoding) (io.ReadCloser, error)

	// OpenRange opens the byte range [start, end] of the track, both ends
	// inclusive. end < 0 means "to the end of the track".
	OpenRange(ctx context.Context, enc domain.Encoding, start, end int64) (io.ReadCloser, error)
}
