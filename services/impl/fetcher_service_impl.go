package impl

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type fetcherServiceImpl struct {
	browser        *rod.Browser
	launcher       *launcher.Launcher
	sem            *semaphore.Weighted
	timeout        time.Duration
	blockedDomains []string
	httpClient     *http.Client
	logger         *zap.SugaredLogger
}

// NewFetcherService launches a shared headless browser. Each fetched URL
// gets its own page; the semaphore caps how many are in flight.
func NewFetcherService(cfg *config.FetcherConfig) (services.FetcherService, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &fetcherServiceImpl{
		browser:        browser,
		launcher:       l,
		sem:            semaphore.NewWeighted(int64(cfg.Concurrency)),
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		blockedDomains: cfg.BlockedDomains,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		logger:         logging.Named("fetcher"),
	}, nil
}

func (f *fetcherServiceImpl) FetchURLs(ctx context.Context, urls []string) []models.FetchResult {
	results := make([]models.FetchResult, len(urls))
	var wg sync.WaitGroup

	for i, rawURL := range urls {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			results[i] = failedFetch(rawURL, err)
			continue
		}
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			defer f.sem.Release(1)
			results[idx] = f.fetchOne(ctx, u)
		}(i, rawURL)
	}

	wg.Wait()
	return results
}

func (f *fetcherServiceImpl) ExtractLinks(ctx context.Context, url string) (models.FetchResult, error) {
	result := f.fetchOne(ctx, url)
	if !result.Success {
		return result, models.NewUpstreamError("failed to fetch "+url, fmt.Errorf("%s", result.Error))
	}
	return result, nil
}

func (f *fetcherServiceImpl) PingURL(ctx context.Context, rawURL string) models.PingURLResponse {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return models.PingURLResponse{Success: false, URL: rawURL, Error: err.Error()}
	}

	status, err := f.probe(ctx, http.MethodHead, normalized)
	if err != nil || status >= 400 {
		// Some servers reject HEAD outright; retry with GET.
		status, err = f.probe(ctx, http.MethodGet, normalized)
	}
	if err != nil {
		return models.PingURLResponse{Success: false, URL: rawURL, NormalizedURL: normalized, Error: err.Error()}
	}
	return models.PingURLResponse{
		Success:       status < 400,
		URL:           rawURL,
		NormalizedURL: normalized,
		StatusCode:    status,
	}
}

func (f *fetcherServiceImpl) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (f *fetcherServiceImpl) Close() error {
	err := f.browser.Close()
	f.launcher.Cleanup()
	return err
}

// fetchOne renders one URL and extracts text, title, and links. Any failure
// yields a result with Success=false; the batch keeps going.
func (f *fetcherServiceImpl) fetchOne(ctx context.Context, rawURL string) (result models.FetchResult) {
	result = models.FetchResult{URL: rawURL}

	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.NormalizedURL = normalized

	defer func() {
		if r := recover(); r != nil {
			f.logger.Errorw("panic while fetching", "url", rawURL, "panic", r)
			result.Success = false
			result.Error = fmt.Sprintf("fetch panic: %v", r)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := f.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		result.Error = fmt.Sprintf("failed to open page: %v", err)
		return result
	}
	page = page.Context(fetchCtx)
	defer page.Close()

	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: desktopUserAgent})
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	})

	var statusCode int
	waitStatus := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			statusCode = e.Response.Status
			return true
		}
		return false
	})

	waitIdle := page.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := page.Navigate(normalized); err != nil {
		result.Error = fmt.Sprintf("navigation failed: %v", err)
		return result
	}
	waitStatus()
	waitIdle()

	content, err := page.HTML()
	if err != nil {
		result.Error = fmt.Sprintf("failed to read page html: %v", err)
		return result
	}

	info, err := page.Info()
	finalURL := normalized
	if err == nil && info.URL != "" {
		finalURL = info.URL
	}

	doc, err := ParseHTML(content)
	if err != nil {
		result.Error = fmt.Sprintf("failed to parse html: %v", err)
		return result
	}

	text := ExtractPageText(doc, finalURL)
	hrefs := FilterURLs(ExtractPageLinks(doc, finalURL, normalized), f.blockedDomains)

	result.Success = true
	result.FinalURL = finalURL
	result.Title = ExtractTitle(doc)
	result.TextContent = text
	result.TextLength = len(text)
	result.Hrefs = hrefs
	result.HrefsCount = len(hrefs)
	result.StatusCode = statusCode
	return result
}

func failedFetch(url string, err error) models.FetchResult {
	return models.FetchResult{URL: url, Error: err.Error()}
}
