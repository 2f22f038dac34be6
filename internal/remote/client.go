// Package remote fetches RFP resources from candidate source locations.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/metrics"
	"github.com/rfp-agent/backend/pkg/circuitbreaker"
	"github.com/rfp-agent/backend/pkg/logger"
	"github.com/rfp-agent/backend/pkg/retry"
	"github.com/rfp-agent/backend/pkg/utils"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrBodyTooLarge     = errors.New("response body too large")
	ErrUnsupportedURL   = errors.New("unsupported source location")
)

// CacheKeyPrefix namespaces cached resources.
const CacheKeyPrefix = "resource:"

// Resource is a fetched document with its declared content type.
type Resource struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Cache stores fetched resources between runs.
type Cache interface {
	GetResource(ctx context.Context, key string) (*Resource, bool, error)
	SetResource(ctx context.Context, key string, res *Resource, ttl time.Duration) error
}

type Config struct {
	Timeout      time.Duration
	MaxAttempts  int
	MaxBodyBytes int64
	UserAgent    string
	CacheTTL     time.Duration
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	retryCfg   retry.Config
	breakers   *circuitbreaker.Group
	cache      Cache
}

// NewClient builds a fetcher. cache may be nil.
func NewClient(cfg Config, cache Cache) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 20 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "rfp-agent/1.0"
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.MaxAttempts
	retryCfg.Logger = logger.GetLogger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:      cfg,
		retryCfg: retryCfg,
		breakers: circuitbreaker.NewGroup(circuitbreaker.Config{
			FailureThreshold: 3,
			Timeout:          30 * time.Second,
			Logger:           logger.GetLogger(),
		}),
		cache: cache,
	}
}

// Fetch retrieves location over http(s). Server errors and transport errors
// are retried; client errors are not. Failures of one host do not affect others.
func (c *Client) Fetch(ctx context.Context, location string) (*Resource, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, location)
	}

	cacheKey := CacheKeyPrefix + utils.HashString(location)
	if c.cache != nil {
		res, ok, err := c.cache.GetResource(ctx, cacheKey)
		switch {
		case err != nil:
			logger.Warn("Resource cache lookup failed", zap.String("url", location), zap.Error(err))
		case ok:
			metrics.CacheHits.WithLabelValues("resource").Inc()
			return res, nil
		default:
			metrics.CacheMisses.WithLabelValues("resource").Inc()
		}
	}

	start := time.Now()
	breaker := c.breakers.Get(u.Host)

	res, err := retry.DoWithResult(ctx, c.retryCfg, func(ctx context.Context) (*Resource, error) {
		var out *Resource
		err := breaker.Execute(func() error {
			var err error
			out, err = c.get(ctx, location)
			return err
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, retry.Permanent(err)
		}
		return out, err
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RemoteFetchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Warn("Remote fetch failed", zap.String("url", location), zap.Error(err))
		return nil, err
	}

	logger.Info("Remote resource fetched",
		zap.String("url", location),
		zap.String("content_type", res.ContentType),
		zap.Int("bytes", len(res.Body)),
	)

	if c.cache != nil {
		if err := c.cache.SetResource(ctx, cacheKey, res, c.cfg.CacheTTL); err != nil {
			logger.Warn("Failed to cache resource", zap.String("url", location), zap.Error(err))
		}
	}

	return res, nil
}

func (c *Client) get(ctx context.Context, location string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, application/pdf, text/html, text/plain;q=0.9, */*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, retry.Permanent(fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, retry.Permanent(ErrBodyTooLarge)
	}

	return &Resource{
		URL:         location,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
