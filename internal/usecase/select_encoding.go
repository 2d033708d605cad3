package usecase

import (
	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// SelectEncoding picks the video encoding to serve for the requested
// quality tier. At the top tier an HDR encoding wins over everything else.
// Below that, a muxed encoding (video+audio) is preferred so the stream
// can be proxied as-is; a video-only encoding is the fallback and forces
// a remux. There is no fallback across tiers: if nothing matches the
// requested quality exactly, ErrNoEncoding is returned.
func SelectEncoding(c domain.Catalog, q domain.Quality) (domain.Encoding, error) {
	if q == domain.TopQuality {
		for _, enc := range c.Encodings {
			if enc.Quality == q && enc.HasVideo && enc.HDR() {
				return enc, nil
			}
		}
	}

	for _, enc := range c.Encodings {
		if enc.Quality == q && enc.HasVideo && enc.HasAudio {
			return enc, nil
		}
	}

	for _, enc := range c.Encodings {
		if enc.Quality == q && enc.HasVideo {
			return enc, nil
		}
	}

	return domain.Encoding{}, ErrNoEncoding
}

// SelectBestAudio returns the audio encoding with the highest audio
// bitrate. Audio-only encodings are preferred over muxed ones so the
// remux does not pull a second video track.
func SelectBestAudio(c domain.Catalog) (domain.Encoding, bool) {
	var best domain.Encoding
	found := false
	for _, enc := range c.Encodings {
		if !enc.HasAudio || enc.HasVideo {
			continue
		}
		if !found || enc.AudioBitrate > best.AudioBitrate {
			best = enc
			found = true
		}
	}
	if found {
		return best, true
	}
	for _, enc := range c.Encodings {
		if !enc.HasAudio {
			continue
		}
		if !found || enc.AudioBitrate > best.AudioBitrate {
			best = enc
			found = true
		}
	}
	return best, found
}
