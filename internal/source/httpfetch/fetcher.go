package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// Fetcher pulls track bytes from the CDN URLs carried in encodings. It
// implements ports.Fetcher.
type Fetcher struct {
	http *http.Client
}

func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{
			// No overall timeout: whole-track transfers run as long as
			// playback does. Dial and TLS limits come from the transport.
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Fetcher{http: client}
}

func (f *Fetcher) Open(ctx context.Context, enc domain.Encoding) (io.ReadCloser, error) {
	return f.open(ctx, enc, "")
}

func (f *Fetcher) OpenRange(ctx context.Context, enc domain.Encoding, start, end int64) (io.ReadCloser, error) {
	rng := "bytes=" + strconv.FormatInt(start, 10) + "-"
	if end >= 0 {
		rng += strconv.FormatInt(end, 10)
	}
	return f.open(ctx, enc, rng)
}

func (f *Fetcher) open(ctx context.Context, enc domain.Encoding, rng string) (io.ReadCloser, error) {
	if enc.URL == "" {
		return nil, fmt.Errorf("encoding itag %d has no stream url", enc.Itag)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, enc.URL, nil)
	if err != nil {
		return nil, err
	}
	if rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch track: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return resp.Body, nil
	case http.StatusNotFound, http.StatusForbidden, http.StatusGone:
		// Stream URLs expire; a dead link means the catalog must be
		// resolved again.
		resp.Body.Close()
		return nil, fmt.Errorf("%w: track url expired (status %d)", domain.ErrNotFound, resp.StatusCode)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch track: unexpected status %d", resp.StatusCode)
	}
}

