package domain

import "time"

// StreamMode says how the response bytes are produced.
type StreamMode string

const (
	// ModePassthrough proxies a single muxed encoding unchanged.
	ModePassthrough StreamMode = "passthrough"
	// ModeRemux merges a video-only encoding with the best audio
	// encoding through ffmpeg.
	ModeRemux StreamMode = "remux"
)

// SessionState is a point-in-time snapshot of one active streaming
// session, published over the websocket hub and listed by the sessions
// endpoint.
type SessionState struct {
	ID        string     `json:"id"`
	ContentID string     `json:"contentId"`
	Title     string     `json:"title,omitempty"`
	Quality   Quality    `json:"quality"`
	Mode      StreamMode `json:"mode"`
	HDR       bool       `json:"hdr,omitempty"`
	BytesSent int64      `json:"bytesSent"`
	ClientIP  string     `json:"clientIp,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
