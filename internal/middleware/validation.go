package middleware

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// DefaultCategories is the category filter used when a request names none.
const DefaultCategories = `["sponsor"]`

// Client-facing validation messages. Clients match on these strings.
const (
	MsgBadHashPrefix   = "Hash prefix does not match format requirements."
	MsgVideoIDRequired = "videoID parameter is required"
	MsgBadVideoID      = "videoID does not match format requirements"
	MsgBadCategories   = "Categories parameter does not match format requirements."
)

var (
	// hashPrefixRe matches the 4 hex characters of a SHA256(videoID) prefix.
	hashPrefixRe = regexp.MustCompile(`^[0-9a-f]{4}$`)
	// videoIDRe matches YouTube video IDs.
	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{6,11}$`)
)

// BadRequest writes a plain-text 400 response.
func BadRequest(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).SendString(message)
}

// ValidateHashPrefix lowercases a hash prefix and checks its format.
func ValidateHashPrefix(prefix string) (string, string) {
	prefix = strings.ToLower(prefix)
	if !hashPrefixRe.MatchString(prefix) {
		return "", MsgBadHashPrefix
	}
	return prefix, ""
}

// ValidateVideoID checks that a video ID is present and well-formed.
// present tells an absent parameter apart from an empty one, which is
// merely malformed.
func ValidateVideoID(id string, present bool) (string, string) {
	if !present {
		return "", MsgVideoIDRequired
	}
	if !videoIDRe.MatchString(id) {
		return "", MsgBadVideoID
	}
	return id, ""
}

// ParseCategories decodes the categories query parameter, a JSON array of
// strings. An absent parameter means DefaultCategories. It returns the
// names, the parameter to forward upstream, and an error message.
func ParseCategories(raw string) ([]string, string, string) {
	if raw == "" {
		raw = DefaultCategories
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, "", MsgBadCategories
	}
	if names == nil {
		// JSON null
		return nil, "", MsgBadCategories
	}
	return names, raw, ""
}
