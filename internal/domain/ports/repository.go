package ports

import (
	"context"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// HistoryRepository persists playback history keyed by content id.
type HistoryRepository interface {
	Upsert(ctx context.Context, rec domain.StreamRecord) error
	Get(ctx context.Context, contentID string) (domain.StreamRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.StreamRecord, error)
	Delete(ctx context.Context, contentID string) error
}
