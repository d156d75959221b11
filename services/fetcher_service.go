package services

import (
	"context"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// FetcherService drives a headless browser to turn URLs into clean text and
// outbound link sets.
type FetcherService interface {
	// FetchURLs fetches every URL under the configured concurrency cap.
	// Per-item failures never abort the batch; each input yields a result.
	FetchURLs(ctx context.Context, urls []string) []models.FetchResult

	// ExtractLinks renders a single page and returns its fetch result with
	// the filtered outbound link set populated.
	ExtractLinks(ctx context.Context, url string) (models.FetchResult, error)

	// PingURL probes a URL for reachability without a browser.
	PingURL(ctx context.Context, url string) models.PingURLResponse

	// Close releases the browser.
	Close() error
}
