package usecase

import (
	"errors"
	"testing"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

func enc(itag int, q domain.Quality, video, audio bool) domain.Encoding {
	return domain.Encoding{Itag: itag, Quality: q, HasVideo: video, HasAudio: audio}
}

func TestSelectEncodingPrefersMuxed(t *testing.T) {
	c := domain.Catalog{Encodings: []domain.Encoding{
		enc(247, domain.Quality720p, true, false),
		enc(22, domain.Quality720p, true, true),
		enc(137, domain.Quality1080p, true, false),
	}}

	got, err := SelectEncoding(c, domain.Quality720p)
	if err != nil {
		t.Fatalf("SelectEncoding: %v", err)
	}
	if got.Itag != 22 {
		t.Fatalf("expected muxed itag 22, got %d", got.Itag)
	}
}

func TestSelectEncodingFallsBackToVideoOnly(t *testing.T) {
	c := domain.Catalog{Encodings: []domain.Encoding{
		enc(140, "", false, true),
		enc(137, domain.Quality1080p, true, false),
	}}

	got, err := SelectEncoding(c, domain.Quality1080p)
	if err != nil {
		t.Fatalf("SelectEncoding: %v", err)
	}
	if got.Itag != 137 || got.HasAudio {
		t.Fatalf("expected video-only itag 137, got %+v", got)
	}
}

func TestSelectEncodingNoTierFallback(t *testing.T) {
	c := domain.Catalog{Encodings: []domain.Encoding{
		enc(22, domain.Quality720p, true, true),
		enc(137, domain.Quality1080p, true, false),
	}}

	if _, err := SelectEncoding(c, domain.Quality1440p); !errors.Is(err, ErrNoEncoding) {
		t.Fatalf("expected ErrNoEncoding, got %v", err)
	}
}

func TestSelectEncodingHDRAtTopTier(t *testing.T) {
	sdr := enc(313, domain.Quality2160p, true, false)
	hdr := enc(702, domain.Quality2160p, true, false)
	hdr.ColorPrimaries = domain.ColorPrimariesBT2020
	muxed := enc(38, domain.Quality2160p, true, true)

	tests := []struct {
		name     string
		encs     []domain.Encoding
		wantItag int
	}{
		{"hdr beats muxed at top tier", []domain.Encoding{muxed, sdr, hdr}, 702},
		{"muxed wins without hdr", []domain.Encoding{sdr, muxed}, 38},
		{"transfer characteristic alone marks hdr", nil, 702},
	}

	// Third case: HDR detected via transfer instead of primaries.
	viaTransfer := sdr
	viaTransfer.Itag = 702
	viaTransfer.ColorTransfer = domain.ColorTransferSMPTE2084
	tests[2].encs = []domain.Encoding{muxed, viaTransfer}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectEncoding(domain.Catalog{Encodings: tc.encs}, domain.Quality2160p)
			if err != nil {
				t.Fatalf("SelectEncoding: %v", err)
			}
			if got.Itag != tc.wantItag {
				t.Fatalf("expected itag %d, got %d", tc.wantItag, got.Itag)
			}
		})
	}
}

func TestSelectEncodingHDRIgnoredBelowTopTier(t *testing.T) {
	hdr := enc(699, domain.Quality1080p, true, false)
	hdr.ColorTransfer = domain.ColorTransferSMPTE2084
	muxed := enc(37, domain.Quality1080p, true, true)

	got, err := SelectEncoding(domain.Catalog{Encodings: []domain.Encoding{hdr, muxed}}, domain.Quality1080p)
	if err != nil {
		t.Fatalf("SelectEncoding: %v", err)
	}
	if got.Itag != 37 {
		t.Fatalf("expected muxed itag 37 below top tier, got %d", got.Itag)
	}
}

func TestSelectBestAudio(t *testing.T) {
	a128 := domain.Encoding{Itag: 140, HasAudio: true, AudioBitrate: 128}
	a160 := domain.Encoding{Itag: 251, HasAudio: true, AudioBitrate: 160}
	muxed := domain.Encoding{Itag: 22, HasVideo: true, HasAudio: true, AudioBitrate: 192}

	got, ok := SelectBestAudio(domain.Catalog{Encodings: []domain.Encoding{muxed, a128, a160}})
	if !ok || got.Itag != 251 {
		t.Fatalf("expected audio-only itag 251, got %+v ok=%v", got, ok)
	}

	// Only muxed audio available: fall back to it.
	got, ok = SelectBestAudio(domain.Catalog{Encodings: []domain.Encoding{muxed}})
	if !ok || got.Itag != 22 {
		t.Fatalf("expected muxed fallback itag 22, got %+v ok=%v", got, ok)
	}

	if _, ok := SelectBestAudio(domain.Catalog{}); ok {
		t.Fatal("expected no audio encoding")
	}
}
