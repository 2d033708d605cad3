package innertube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

const (
	defaultBaseURL = "https://www.youtube.com/youtubei/v1"

	// The ANDROID client gets plain stream URLs back, no signature
	// deciphering required.
	clientName    = "ANDROID"
	clientVersion = "19.09.37"
	sdkVersion    = 30
	userAgent     = "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip"
)

// Client resolves content through the InnerTube player API. It implements
// ports.Resolver.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing player calls. The upstream throttles
// aggressive callers, so a modest ceiling keeps the service usable.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type playerRequest struct {
	Context        requestContext `json:"context"`
	VideoID        string         `json:"videoId"`
	ContentCheckOK bool           `json:"contentCheckOk"`
}

type requestContext struct {
	Client requestClient `json:"client"`
}

type requestClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSDKVersion int    `json:"androidSdkVersion"`
	HL                string `json:"hl"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	StreamingData struct {
		Formats         []wireFormat `json:"formats"`
		AdaptiveFormats []wireFormat `json:"adaptiveFormats"`
	} `json:"streamingData"`
	VideoDetails struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		Author        string `json:"author"`
		LengthSeconds string `json:"lengthSeconds"`
	} `json:"videoDetails"`
}

type wireFormat struct {
	Itag           int    `json:"itag"`
	URL            string `json:"url"`
	MimeType       string `json:"mimeType"`
	Bitrate        int    `json:"bitrate"`
	AverageBitrate int    `json:"averageBitrate"`
	ContentLength  string `json:"contentLength"`
	QualityLabel   string `json:"qualityLabel"`
	AudioQuality   string `json:"audioQuality"`
	ColorInfo      struct {
		Primaries               string `json:"primaries"`
		TransferCharacteristics string `json:"transferCharacteristics"`
	} `json:"colorInfo"`
}

// Resolve calls the player endpoint for contentID and maps the response
// into a domain catalog. Unplayable content maps to domain.ErrNotFound.
func (c *Client) Resolve(ctx context.Context, contentID string) (domain.Catalog, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Catalog{}, err
	}

	body, err := json.Marshal(playerRequest{
		Context: requestContext{Client: requestClient{
			ClientName:        clientName,
			ClientVersion:     clientVersion,
			AndroidSDKVersion: sdkVersion,
			HL:                "en",
		}},
		VideoID:        contentID,
		ContentCheckOK: true,
	})
	if err != nil {
		return domain.Catalog{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/player", bytes.NewReader(body))
	if err != nil {
		return domain.Catalog{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("player request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return domain.Catalog{}, fmt.Errorf("player request: unexpected status %d", resp.StatusCode)
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode player response: %w", err)
	}

	switch pr.PlayabilityStatus.Status {
	case "OK":
	case "ERROR", "UNPLAYABLE", "LOGIN_REQUIRED":
		c.logger.Debug("content not playable",
			slog.String("contentId", contentID),
			slog.String("status", pr.PlayabilityStatus.Status),
			slog.String("reason", pr.PlayabilityStatus.Reason))
		return domain.Catalog{}, domain.ErrNotFound
	default:
		return domain.Catalog{}, fmt.Errorf("playability %s: %s",
			pr.PlayabilityStatus.Status, pr.PlayabilityStatus.Reason)
	}

	catalog := domain.Catalog{
		ContentID: contentID,
		Title:     pr.VideoDetails.Title,
		Author:    pr.VideoDetails.Author,
	}
	if secs, err := strconv.Atoi(pr.VideoDetails.LengthSeconds); err == nil {
		catalog.Duration = time.Duration(secs) * time.Second
	}

	for _, f := range pr.StreamingData.Formats {
		catalog.Encodings = append(catalog.Encodings, mapFormat(f))
	}
	for _, f := range pr.StreamingData.AdaptiveFormats {
		catalog.Encodings = append(catalog.Encodings, mapFormat(f))
	}
	if len(catalog.Encodings) == 0 {
		return domain.Catalog{}, domain.ErrNotFound
	}
	return catalog, nil
}

func mapFormat(f wireFormat) domain.Encoding {
	enc := domain.Encoding{
		Itag:           f.Itag,
		Quality:        domain.Quality(f.QualityLabel),
		MimeType:       f.MimeType,
		HasVideo:       strings.HasPrefix(f.MimeType, "video/"),
		HasAudio:       strings.HasPrefix(f.MimeType, "audio/") || f.AudioQuality != "",
		ColorPrimaries: normalizeColor(f.ColorInfo.Primaries, "COLOR_PRIMARIES_"),
		ColorTransfer:  normalizeColor(f.ColorInfo.TransferCharacteristics, "COLOR_TRANSFER_CHARACTERISTICS_"),
		Bitrate:        f.Bitrate,
		URL:            f.URL,
	}
	if enc.HasAudio {
		enc.AudioBitrate = f.AverageBitrate
		if enc.AudioBitrate == 0 {
			enc.AudioBitrate = f.Bitrate
		}
	}
	if n, err := strconv.ParseInt(f.ContentLength, 10, 64); err == nil {
		enc.ContentLength = n
	}
	// Muxed legacy formats carry a quality label and both tracks but no
	// audioQuality field on some clients; the video/ prefix plus label
	// already marks them as video, audio is flagged separately above.
	return enc
}

// normalizeColor lowers InnerTube enum values like
// COLOR_PRIMARIES_BT2020 to the bare token "bt2020".
func normalizeColor(v, prefix string) string {
	if v == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(v, prefix))
}
