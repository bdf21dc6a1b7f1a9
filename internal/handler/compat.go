package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/bertybuttface/sponsorblock-mirror/internal/model"
)

// The mirror has no user data. These endpoints answer with fixed empty
// bodies so that clients which query them on startup do not report errors.

// IsUserVIP handles GET /api/isUserVIP
func IsUserVIP(c fiber.Ctx) error {
	return c.JSON(model.VIPResponse{})
}

// UserInfo handles GET /api/userInfo
func UserInfo(c fiber.Ctx) error {
	return c.JSON(model.UserInfoResponse{})
}
