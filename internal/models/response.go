package models

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every successful endpoint responds with.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// PageInfo describes the page returned by a list endpoint.
type PageInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPageInfo computes the page count for total items split into pages of limit.
func NewPageInfo(page, limit int, total int64) PageInfo {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PageInfo{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Respond writes a success envelope with the given status.
func Respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondList writes a success envelope wrapping items under key alongside pagination.
func RespondList(c *fiber.Ctx, key string, items any, page PageInfo) error {
	return c.JSON(APIResponse{
		Success: true,
		Data: fiber.Map{
			key:          items,
			"pagination": page,
		},
	})
}
