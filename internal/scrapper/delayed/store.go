package delayed

import (
	"context"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

// Store keeps deferred updates in buckets keyed by HH:mm. Drain returns the
// bucket content and clears it in one step.
type Store interface {
	Append(ctx context.Context, bucket string, update *models.LinkUpdate) error
	Drain(ctx context.Context, bucket string) ([]*models.LinkUpdate, error)
	Close() error
}
