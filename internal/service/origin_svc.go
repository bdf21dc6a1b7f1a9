package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bertybuttface/sponsorblock-mirror/internal/metrics"
)

// maxOriginBody caps how much of an origin response is relayed.
const maxOriginBody = 16 << 20

// ErrOrigin wraps every failure of an origin fallback call.
var ErrOrigin = errors.New("origin request failed")

// OriginStatusError is returned when the origin answers with a non-200
// status. Body holds what the origin sent.
type OriginStatusError struct {
	Status int
	Body   []byte
}

func (e *OriginStatusError) Error() string {
	return fmt.Sprintf("origin returned status %d", e.Status)
}

func (e *OriginStatusError) Unwrap() error { return ErrOrigin }

// OriginService forwards local misses to the upstream segment service.
// Calls are independent of one another; a shared token bucket keeps the
// mirror from flooding the origin when many requests miss at once.
type OriginService struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	cache   *CacheService
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// OriginConfig carries the origin client's tunables.
type OriginConfig struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond and Burst size the outbound token bucket. A zero rate
	// disables limiting.
	RatePerSecond float64
	Burst         int
}

func NewOriginService(cfg OriginConfig, cache *CacheService, m *metrics.Collector, logger zerolog.Logger) *OriginService {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if cache == nil {
		cache = &CacheService{}
	}

	return &OriginService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(limit, burst),
		cache:   cache,
		metrics: m,
		logger:  logger.With().Str("component", "origin").Logger(),
	}
}

// SkipSegmentsByHash relays GET /api/skipSegments/{prefix}.
func (o *OriginService) SkipSegmentsByHash(ctx context.Context, prefix, categories string) ([]byte, error) {
	u := fmt.Sprintf("%s/api/skipSegments/%s?categories=%s",
		o.baseURL, url.PathEscape(prefix), url.QueryEscape(categories))
	return o.fetch(ctx, "hash", "hash:"+prefix+":"+categories, u)
}

// SkipSegmentsByVideoID relays GET /api/skipSegments?videoID=...
func (o *OriginService) SkipSegmentsByVideoID(ctx context.Context, videoID, categories string) ([]byte, error) {
	q := url.Values{}
	q.Set("videoID", videoID)
	q.Set("categories", categories)
	u := o.baseURL + "/api/skipSegments?" + q.Encode()
	return o.fetch(ctx, "video", "video:"+videoID+":"+categories, u)
}

func (o *OriginService) fetch(ctx context.Context, kind, cacheKey, target string) ([]byte, error) {
	if body, err := o.cache.GetOrigin(ctx, cacheKey); err != nil {
		o.logger.Warn().Err(err).Msg("cache read failed")
	} else if body != nil {
		o.metrics.RecordCacheHit()
		o.metrics.RecordOriginFallback(kind, "cached")
		return body, nil
	} else if o.cache.Client() != nil {
		o.metrics.RecordCacheMiss()
	}

	body, err := o.get(ctx, target)
	if err != nil {
		o.metrics.RecordOriginFallback(kind, "error")
		return nil, err
	}
	o.metrics.RecordOriginFallback(kind, "ok")

	if err := o.cache.SetOrigin(ctx, cacheKey, body); err != nil {
		o.logger.Warn().Err(err).Msg("cache write failed")
	}
	return body, nil
}

func (o *OriginService) get(ctx context.Context, target string) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrigin, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrigin, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrigin, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOriginBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrOrigin, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &OriginStatusError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}
