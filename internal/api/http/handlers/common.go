package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return user, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.Envelope{Success: true, Message: message, Data: data})
}

func respondPage[T, R any](c *fiber.Ctx, message string, page service.Page[T], mapItems func([]T) []R) error {
	return c.JSON(dto.PagedEnvelope{
		Success:    true,
		Message:    message,
		Data:       mapItems(page.Items),
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func parsePageRequest(c *fiber.Ctx) service.PageRequest {
	return service.PageRequest{
		Page:  parseInt(c.Query("page"), 1),
		Limit: parseInt(c.Query("limit"), 0),
	}
}

// parseList splits comma-separated and repeated query values.
func parseList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, part := range strings.Split(string(raw), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseEnumList[T ~string](c *fiber.Ctx, key string) []T {
	values := parseList(c, key)
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return out
}

const dateLayout = "2006-01-02"

// parseTime accepts RFC3339 or a bare date.
func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, val); err == nil {
			return &t
		}
	}
	return nil
}

// parseTimeEnd is parseTime for inclusive upper bounds: a bare date covers
// the whole day.
func parseTimeEnd(val string) *time.Time {
	if t, err := time.Parse(dateLayout, val); err == nil {
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return &end
	}
	return parseTime(val)
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func parseOptionalString(c *fiber.Ctx, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func parseOptionalBool(c *fiber.Ctx, key string) *bool {
	val := c.Query(key)
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &parsed
}
