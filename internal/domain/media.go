package domain

import "time"

// Quality is a resolution tier label as advertised by the source catalog,
// e.g. "720p". The set of supported labels is fixed; requests for anything
// else are rejected before any network access.
type Quality string

const (
	Quality144p  Quality = "144p"
	Quality240p  Quality = "240p"
	Quality360p  Quality = "360p"
	Quality480p  Quality = "480p"
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality1440p Quality = "1440p"
	Quality2160p Quality = "2160p"
)

// TopQuality is the highest supported tier. HDR encodings are only
// preferred at this tier.
const TopQuality = Quality2160p

var supportedQualities = []Quality{
	Quality144p,
	Quality240p,
	Quality360p,
	Quality480p,
	Quality720p,
	Quality1080p,
	Quality1440p,
	Quality2160p,
}

// SupportedQualities returns the fixed ordered set of quality labels.
func SupportedQualities() []Quality {
	out := make([]Quality, len(supportedQualities))
	copy(out, supportedQualities)
	return out
}

// Valid reports whether q is one of the supported quality labels.
func (q Quality) Valid() bool {
	for _, s := range supportedQualities {
		if q == s {
			return true
		}
	}
	return false
}

// Normalized color metadata values that indicate an HDR video track.
const (
	ColorPrimariesBT2020   = "bt2020"
	ColorTransferSMPTE2084 = "smpte2084"
)

// Encoding is one available combination of codec/container/quality for a
// piece of content, as advertised by the source catalog. Values are never
// mutated after retrieval.
type Encoding struct {
	Itag           int
	Quality        Quality // empty for audio-only encodings
	MimeType       string
	HasVideo       bool
	HasAudio       bool
	ColorPrimaries string // normalized, e.g. "bt2020"; empty when unknown
	ColorTransfer  string // normalized, e.g. "smpte2084"; empty when unknown
	ContentLength  int64  // total track bytes; 0 when the catalog does not declare it
	Bitrate        int
	AudioBitrate   int
	URL            string // opaque fetch token for the track byte stream
}

// HDR reports whether the encoding's color metadata indicates HDR content.
func (e Encoding) HDR() bool {
	return e.ColorPrimaries == ColorPrimariesBT2020 || e.ColorTransfer == ColorTransferSMPTE2084
}

// Catalog is the full set of encodings advertised for one content item,
// plus descriptive metadata. It is resolved once per request and passed
// through the pipeline explicitly; nothing caches it across requests.
type Catalog struct {
	ContentID string
	Title     string
	Author    string
	Duration  time.Duration
	Encodings []Encoding
}
