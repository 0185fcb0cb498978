package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

// ResourceClient detects changes of one kind of external resource.
// FetchChanges never returns a nil slice. When a change is found the link's
// LastSeen is advanced in place and exactly one event is returned.
type ResourceClient interface {
	Name() string
	Supports(url string) bool
	FetchChanges(ctx context.Context, link *models.Link) ([]models.ChangeEvent, error)
}

func getJSON(ctx context.Context, req *resty.Request, url, source string, linkType models.LinkType, out any) error {
	start := time.Now()

	resp, err := req.SetContext(ctx).Get(url)
	if err != nil {
		metrics.RecordScrapeRequest(string(linkType), metrics.StatusError, time.Since(start))
		return fmt.Errorf("ошибка запроса к %s: %w", source, err)
	}

	if !resp.IsSuccess() {
		metrics.RecordScrapeRequest(string(linkType), metrics.StatusError, time.Since(start))
		return &errors.HTTPError{StatusCode: resp.StatusCode()}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		metrics.RecordScrapeRequest(string(linkType), metrics.StatusError, time.Since(start))
		return &errors.ErrMalformedPayload{Source: source, Cause: err}
	}

	metrics.RecordScrapeRequest(string(linkType), metrics.StatusSuccess, time.Since(start))

	return nil
}

// detect applies the high-water rule: the event is emitted only when the
// newest candidate timestamp is strictly after the link's LastSeen.
func detect(link *models.Link, event models.ChangeEvent, candidates ...time.Time) []models.ChangeEvent {
	latest := models.LatestOf(candidates...)

	if !link.Advance(latest) {
		return []models.ChangeEvent{}
	}

	event.LinkID = link.ID
	event.URL = link.URL
	event.UpdatedAt = latest

	metrics.RecordChangeDetected(string(event.Kind))

	return []models.ChangeEvent{event}
}

func unixTime(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}

	return time.Unix(seconds, 0).UTC()
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}
