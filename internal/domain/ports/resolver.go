package ports

import (
	"context"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// Resolver fetches the encoding catalog for a piece of content from the
// upstream source. Implementations must return domain.ErrNotFound when the
// content does not exist or is not playable.
type Resolver interface {
	Resolve(ctx context.Context, contentID string) (domain.Catalog, error)
}
