package usecase

import (
	"context"
	"errors"
	"io"
	"regexp"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
	"github.com/bayuairbender2950/youtube-to-url/internal/domain/ports"
)

// StreamPlan is the fully resolved decision for one playback request:
// which encodings to pull and how to turn them into response bytes.
// Planning does not open any byte streams; Open does.
type StreamPlan struct {
	Catalog domain.Catalog
	Video   domain.Encoding
	Audio   *domain.Encoding // set only in remux mode
	Mode    domain.StreamMode
	HDR     bool
	Quality domain.Quality

	// Filename is the suggested download name, derived from the title.
	Filename string

	// ContentLength is the exact response size in bytes when known.
	// It is only known in passthrough mode; remuxed output has no
	// predictable size and reports 0.
	ContentLength int64
}

type BuildStream struct {
	Resolver ports.Resolver
	Fetcher  ports.Fetcher
	Remuxer  ports.Remuxer
}

// Plan resolves the catalog for contentID and picks the encodings for the
// requested quality. Returns domain.ErrInvalidQuality for labels outside
// the supported set, domain.ErrNotFound when the content does not exist,
// and ErrNoEncoding when the tier is not available for this content.
func (uc *BuildStream) Plan(ctx context.Context, contentID string, quality domain.Quality) (StreamPlan, error) {
	if !quality.Valid() {
		return StreamPlan{}, domain.ErrInvalidQuality
	}
	if contentID == "" {
		return StreamPlan{}, domain.ErrInvalidContentID
	}

	catalog, err := uc.Resolver.Resolve(ctx, contentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return StreamPlan{}, err
		}
		return StreamPlan{}, wrapSource(err)
	}

	video, err := SelectEncoding(catalog, quality)
	if err != nil {
		return StreamPlan{}, err
	}

	plan := StreamPlan{
		Catalog: catalog,
		Video:   video,
		Quality: quality,
		HDR:     video.HDR(),
	}

	if video.HasAudio {
		plan.Mode = domain.ModePassthrough
		plan.ContentLength = video.ContentLength
	} else {
		audio, ok := SelectBestAudio(catalog)
		if !ok {
			return StreamPlan{}, ErrNoEncoding
		}
		plan.Mode = domain.ModeRemux
		plan.Audio = &audio
	}

	plan.Filename = streamFilename(catalog.Title, quality, plan.HDR)
	return plan, nil
}

// Open starts the byte stream for a planned request. In passthrough mode
// it proxies the muxed encoding directly; in remux mode it opens both
// tracks and hands them to the remuxer. Closing the returned reader
// releases every upstream connection and, in remux mode, reaps the
// merge process.
func (uc *BuildStream) Open(ctx context.Context, plan StreamPlan) (io.ReadCloser, error) {
	if plan.Mode == domain.ModePassthrough {
		rc, err := uc.Fetcher.Open(ctx, plan.Video)
		if err != nil {
			return nil, wrapSource(err)
		}
		return rc, nil
	}

	audio, err := uc.Fetcher.Open(ctx, *plan.Audio)
	if err != nil {
		return nil, wrapSource(err)
	}
	video, err := uc.Fetcher.Open(ctx, plan.Video)
	if err != nil {
		audio.Close()
		return nil, wrapSource(err)
	}

	muxed, err := uc.Remuxer.Remux(ctx, audio, video)
	if err != nil {
		audio.Close()
		video.Close()
		return nil, err
	}
	return &chainCloser{ReadCloser: muxed, also: []io.Closer{audio, video}}, nil
}

// OpenRange starts a byte-range stream for a passthrough plan. Remuxed
// output has no stable byte offsets, so range requests are only valid in
// passthrough mode; callers must not ask otherwise.
func (uc *BuildStream) OpenRange(ctx context.Context, plan StreamPlan, start, end int64) (io.ReadCloser, error) {
	if plan.Mode != domain.ModePassthrough {
		return nil, domain.ErrUnsupported
	}
	rc, err := uc.Fetcher.OpenRange(ctx, plan.Video, start, end)
	if err != nil {
		return nil, wrapSource(err)
	}
	return rc, nil
}

// chainCloser closes the upstream track readers after the muxed reader.
type chainCloser struct {
	io.ReadCloser
	also []io.Closer
}

func (c *chainCloser) Close() error {
	err := c.ReadCloser.Close()
	for _, cl := range c.also {
		cl.Close()
	}
	return err
}

var filenameStrip = regexp.MustCompile(`[^\w\s]`)

// streamFilename derives the suggested filename from the content title:
// everything outside word characters and whitespace is stripped, then the
// quality label and an HDR marker are appended.
func streamFilename(title string, quality domain.Quality, hdr bool) string {
	name := filenameStrip.ReplaceAllString(title, "")
	name += "_" + string(quality)
	if hdr {
		name += "_HDR"
	}
	return name + ".mp4"
}
