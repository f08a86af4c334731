package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/NanoLinuxDevops/WinSphere/config"
	"github.com/NanoLinuxDevops/WinSphere/shared"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const csvAcceptHeader = "text/csv,text/plain,application/octet-stream,*/*;q=0.8"

// ArchiveFetcher downloads one raw archive payload per call
type ArchiveFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// PaisArchiveFetcher downloads the draw archive over HTTP. When an index
// URL is configured, the CSV download link is discovered on that page
// first; the archive occasionally rotates the direct download path.
type PaisArchiveFetcher struct {
	config      config.RefreshConfig
	clients     *shared.HTTPClientFactory
	rateLimiter *shared.ArchiveRequestRateLimiter
	logger      *logrus.Entry
}

func NewPaisArchiveFetcher(cfg config.RefreshConfig) *PaisArchiveFetcher {
	return &PaisArchiveFetcher{
		config:      cfg,
		clients:     shared.NewHTTPClientFactory(cfg.FetchTimeout),
		rateLimiter: shared.NewArchiveRequestRateLimiter(cfg.RequestRateLimit),
		logger: logrus.WithFields(logrus.Fields{
			"component": "PaisArchiveFetcher",
		}),
	}
}

// Fetch downloads the raw archive text. Non-2xx responses become errors
// carrying the status code so classification can route 5xx to the server
// kind.
func (f *PaisArchiveFetcher) Fetch(ctx context.Context) (string, error) {
	downloadURL := f.config.ArchiveURL
	if f.config.ArchiveIndexURL != "" {
		discovered, err := f.discoverDownloadLink(ctx)
		if err != nil {
			f.logger.WithError(err).Warn("CSV link discovery failed, falling back to configured archive URL")
		} else {
			downloadURL = discovered
		}
	}

	f.rateLimiter.EnforceRateLimit()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build archive request: %w", err)
	}
	shared.SetBrowserLikeHeaders(request, csvAcceptHeader)

	client := f.clients.CreateOptimizedHTTPClient(f.config.FetchTimeout)
	response, err := client.Do(request)
	if err != nil {
		return "", fmt.Errorf("archive request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("archive returned HTTP %d for %s", response.StatusCode, downloadURL)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read archive response: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"url":            downloadURL,
		"response_bytes": len(body),
		"status_code":    response.StatusCode,
	}).Debug("Downloaded draw archive")

	return string(body), nil
}

// discoverDownloadLink loads the archive index page and extracts the CSV
// download href.
func (f *PaisArchiveFetcher) discoverDownloadLink(ctx context.Context) (string, error) {
	f.rateLimiter.EnforceRateLimit()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.ArchiveIndexURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build index request: %w", err)
	}
	shared.SetBrowserLikeHeaders(request, "text/html,application/xhtml+xml,*/*;q=0.8")

	client := f.clients.CreateOptimizedHTTPClient(f.config.FetchTimeout)
	response, err := client.Do(request)
	if err != nil {
		return "", fmt.Errorf("index request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("index page returned HTTP %d", response.StatusCode)
	}

	document, err := goquery.NewDocumentFromReader(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse index page: %w", err)
	}

	link := ""
	document.Find("a[href]").EachWithBreak(func(_ int, selection *goquery.Selection) bool {
		href, _ := selection.Attr("href")
		lowered := strings.ToLower(href)
		if strings.Contains(lowered, ".csv") || strings.Contains(lowered, "download") {
			link = href
			return false
		}
		return true
	})
	if link == "" {
		return "", fmt.Errorf("no CSV download link found on index page")
	}

	resolved, err := resolveLink(f.config.ArchiveIndexURL, link)
	if err != nil {
		return "", err
	}

	f.logger.WithField("url", resolved).Debug("Discovered CSV download link on index page")
	return resolved, nil
}

func resolveLink(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid index URL: %w", err)
	}
	linkURL, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid download link: %w", err)
	}
	return baseURL.ResolveReference(linkURL).String(), nil
}

// Close releases pooled HTTP connections
func (f *PaisArchiveFetcher) Close() {
	f.clients.CleanupAllClients()
}
