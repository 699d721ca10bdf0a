package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseFormFloat(c *fiber.Ctx, key string) (float64, error) {
	value := strings.TrimSpace(c.FormValue(key))
	if value == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "missing "+key)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return parsed, nil
}
