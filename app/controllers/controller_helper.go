package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func parseCustomerID(c *fiber.Ctx) (uint, bool) {
	raw := strings.TrimSpace(c.Params("id"))
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
