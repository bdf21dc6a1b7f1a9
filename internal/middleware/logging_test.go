package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/skipSegments/abcd", "/api/skipSegments/:hash"},
		{"/api/skipSegments", "/api/skipSegments"},
		{"/api/skipSegments/", "/api/skipSegments/"},
		{"/health", "/health"},
		{"/api/isUserVIP", "/api/isUserVIP"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.path); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHashIPForLog(t *testing.T) {
	h := hashIPForLog("203.0.113.7")
	if len(h) != 12 {
		t.Fatalf("len = %d, want 12", len(h))
	}
	if h != hashIPForLog("203.0.113.7") {
		t.Fatal("hash must be stable")
	}
	if h == hashIPForLog("203.0.113.8") {
		t.Fatal("different IPs should hash differently")
	}
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(NewRequestID())
	app.Get("/", func(c fiber.Ctx) error { return c.SendString(RequestID(c)) })

	t.Run("mints", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := uuid.Parse(resp.Header.Get(HeaderRequestID)); err != nil {
			t.Fatalf("response id is not a UUID: %v", err)
		}
	})

	t.Run("reuses valid", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, id)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if got := resp.Header.Get(HeaderRequestID); got != id {
			t.Fatalf("got %q, want %q", got, id)
		}
	})

	t.Run("replaces garbage", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "not-an-id\nset-cookie")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := uuid.Parse(resp.Header.Get(HeaderRequestID)); err != nil {
			t.Fatalf("garbage id was not replaced: %v", err)
		}
	})
}
