package domain

import "time"

// StreamRecord is one completed (or aborted) streaming session, kept as
// playback history.
type StreamRecord struct {
	ContentID string     `json:"contentId"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	Quality   Quality    `json:"quality"`
	Mode      StreamMode `json:"mode"`
	HDR       bool       `json:"hdr,omitempty"`
	BytesSent int64      `json:"bytesSent"`
	ClientIP  string     `json:"clientIp,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
