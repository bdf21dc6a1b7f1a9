package router

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bertybuttface/sponsorblock-mirror/internal/handler"
	"github.com/bertybuttface/sponsorblock-mirror/internal/metrics"
	"github.com/bertybuttface/sponsorblock-mirror/internal/middleware"
	"github.com/bertybuttface/sponsorblock-mirror/internal/model"
	"github.com/bertybuttface/sponsorblock-mirror/internal/service"
)

type emptyFinder struct{}

func (emptyFinder) FindByHashPrefix(context.Context, string, []string) ([]model.SponsorTime, error) {
	return nil, nil
}

func (emptyFinder) FindByVideoID(context.Context, string, []string) ([]model.SponsorTime, error) {
	return nil, nil
}

type cannedOrigin struct{}

func (cannedOrigin) SkipSegmentsByHash(context.Context, string, string) ([]byte, error) {
	return []byte(`[]`), nil
}

func (cannedOrigin) SkipSegmentsByVideoID(context.Context, string, string) ([]byte, error) {
	return []byte(`[]`), nil
}

type fixedCount struct{}

func (fixedCount) Count(context.Context) (int64, error) { return 0, nil }

type neverImported struct{}

func (neverImported) LastImported() time.Time { return time.Time{} }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newApp(rateLimit int) *fiber.App {
	reg := prometheus.NewRegistry()
	app := fiber.New()
	Setup(app, &Handlers{
		Segment: handler.NewSegmentHandler(service.NewSegmentService(emptyFinder{}, cannedOrigin{}, nil)),
		Health:  handler.NewHealthHandler(okPinger{}, nil),
		Status:  handler.NewStatusHandler(fixedCount{}, neverImported{}),
	}, Options{
		CORSOrigins: "*",
		RateLimit:   rateLimit,
		Metrics:     metrics.NewCollector(reg, "api", nil),
		Gatherer:    reg,
	})
	return app
}

func TestSetup_Routes(t *testing.T) {
	app := newApp(0)

	for _, path := range []string{
		"/health",
		"/health/live",
		"/metrics",
		"/api/skipSegments/ab12",
		"/api/skipSegments?videoID=dQw4w9WgXcQ",
		"/api/status",
		"/api/isUserVIP",
		"/api/userInfo",
	} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err, path)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID), path)
	}
}

func TestSetup_SegmentRateLimit(t *testing.T) {
	app := newApp(1)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/skipSegments/ab12", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/skipSegments?videoID=dQw4w9WgXcQ", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	// Health is not limited.
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSetup_CORSPreflight(t *testing.T) {
	app := newApp(0)

	req := httptest.NewRequest(fiber.MethodOptions, "/api/skipSegments/ab12", nil)
	req.Header.Set("Origin", "https://www.youtube.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := app.Test(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
