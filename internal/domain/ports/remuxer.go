package ports

import (
	"context"
	"io"
)

// Remuxer merges a separate audio stream and video stream into a single
// container without re-encoding either track. The returned reader delivers
// the muxed bytes; closing it tears the merge down and drains both inputs.
type Remuxer interface {
	Remux(ctx context.Context, audio, video io.Reader) (io.ReadCloser, error)
}
