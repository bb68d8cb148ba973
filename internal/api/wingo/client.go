// Package wingo is the client for the WinGo round history feed.
package wingo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/metrics"
	httpClient "github.com/Alias1177/SignalBot/internal/platform/http"
	"github.com/Alias1177/SignalBot/models"
)

const (
	DefaultBaseURL   = "https://draw.ar-lottery01.com/WinGo/WinGo_30S"
	DefaultPath      = "GetHistoryIssuePage.json"
	DefaultReferer   = "https://dkwin9.com/"
	DefaultOrigin    = "https://dkwin9.com"
	DefaultUserAgent = "Mozilla/5.0 (compatible)"
)

// maxBodySize caps how much of a feed response is read
const maxBodySize = 1 << 20

// Client is the WinGo history feed client
type Client struct {
	baseURL    string
	path       string
	headers    http.Header
	httpClient *httpClient.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new feed client
type ClientOptions struct {
	BaseURL         string
	Path            string
	Referer         string
	Origin          string
	UserAgent       string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
	// Now overrides the clock used for the cache-busting parameter
	Now func() time.Time
}

// NewClient creates a new feed client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	// Apply defaults if not set
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 10 * time.Second
	}
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.Path == "" {
		options.Path = DefaultPath
	}
	if options.Referer == "" {
		options.Referer = DefaultReferer
	}
	if options.Origin == "" {
		options.Origin = DefaultOrigin
	}
	if options.UserAgent == "" {
		options.UserAgent = DefaultUserAgent
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json, text/plain, */*")
	headers.Set("Referer", options.Referer)
	headers.Set("Origin", options.Origin)
	headers.Set("User-Agent", options.UserAgent)

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		path:       strings.TrimLeft(options.Path, "/"),
		headers:    headers,
		httpClient: httpClient.NewClient(httpOpts),
		now:        options.Now,
		logger:     log.With().Str("component", "wingo_client").Logger(),
	}
}

// FetchLatest returns the most recent concluded round
func (c *Client) FetchLatest(ctx context.Context) (models.RoundOutcome, error) {
	rounds, err := c.fetch(ctx, 1)
	if err != nil {
		return models.RoundOutcome{}, err
	}
	return rounds[0], nil
}

// FetchHistory returns up to limit most recent rounds, newest first
func (c *Client) FetchHistory(ctx context.Context, limit int) ([]models.RoundOutcome, error) {
	if limit <= 0 {
		limit = 1
	}
	return c.fetch(ctx, limit)
}

func (c *Client) fetch(ctx context.Context, limit int) ([]models.RoundOutcome, error) {
	started := time.Now()
	body, err := c.get(ctx)
	metrics.FeedRequestDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.FeedRequests.WithLabelValues(metrics.FeedResultUnavailable).Inc()
		return nil, models.Fail(models.ErrFeedUnavailable, "fetch rounds", err)
	}

	rounds, err := parseHistory(body, limit, c.now().UTC())
	if err != nil {
		metrics.FeedRequests.WithLabelValues(metrics.FeedResultFormatError).Inc()
		c.logger.Error().Err(err).Str("response", truncate(body, 512)).Msg("Error parsing feed response")
		return nil, err
	}

	metrics.FeedRequests.WithLabelValues(metrics.FeedResultOK).Inc()
	c.logger.Debug().Int("count", len(rounds)).Str("issue", rounds[0].IssueID).Msg("Fetched rounds")
	return rounds, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s?ts=%s", c.baseURL, c.path, url.QueryEscape(strconv.FormatInt(models.ToMillis(c.now()), 10)))

	c.logger.Debug().Str("url", endpoint).Msg("Fetching rounds")

	// Create a new request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.headers.Clone()

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
