package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/bertybuttface/sponsorblock-mirror/internal/metrics"
)

// MetricsMiddleware records request duration and in-flight count.
func MetricsMiddleware(m *metrics.Collector) fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy the method into an owned string before c.Next(): Fiber returns
		// slices backed by the fasthttp buffer, which handlers may reuse.
		method := string([]byte(c.Method()))

		m.RequestStarted()
		start := time.Now()

		err := c.Next()

		m.RequestFinished(routeLabel(c), method, strconv.Itoa(statusOf(c, err)), time.Since(start))

		return err
	}
}

// statusOf returns the status the error handler will send for err.
func statusOf(c fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// routeLabel returns the registered pattern of the route that handled the
// request, so that label values stay bounded. Requests no route matched
// (unknown paths, or ones a prefix middleware such as the rate limiter
// answered) are labelled "other".
func routeLabel(c fiber.Ctx) string {
	if !c.Matched() {
		return "other"
	}
	return c.Route().Path
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler(gatherer prometheus.Gatherer) fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	)
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
