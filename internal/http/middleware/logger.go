package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger writes one JSON line per request to stdout.
func Logger(loc *time.Location) fiber.Handler {
	return LoggerWithWriter(os.Stdout, loc)
}

// LoggerWithWriter logs each HTTP request as a JSON object written to w.
// Fields:
// - request_id (from context locals set by RequestID)
// - method
// - path (no query string)
// - status
// - latency (milliseconds, as float)
// - ts (RFC3339 in loc)
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	enc := json.NewEncoder(w)
	var mu sync.Mutex

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid := GetRequestID(c)
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		entry := map[string]any{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
			"ts":         time.Now().In(loc).Format(time.RFC3339Nano),
		}

		mu.Lock()
		_ = enc.Encode(entry)
		mu.Unlock()

		return err
	}
}
