package middleware

import (
	"context"
	"runtime/debug"

	"jlpt-listening/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// ConnectionLimiter limits the number of concurrent connections
type ConnectionLimiter struct {
	limit    int
	waitlist chan struct{}
}

func NewConnectionLimiter(limit int) *ConnectionLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &ConnectionLimiter{
		limit:    limit,
		waitlist: make(chan struct{}, limit),
	}
}

func (cl *ConnectionLimiter) Acquire() bool {
	select {
	case cl.waitlist <- struct{}{}:
		return true
	default:
		return false
	}
}

func (cl *ConnectionLimiter) Release() {
	select {
	case <-cl.waitlist:
	default:
	}
}

// Register installs recovery, request ids and connection limiting, in that order.
func Register(app *fiber.App, limit int) {
	app.Use(panicRecoveryMiddleware())
	app.Use(requestIDMiddleware())
	app.Use(connectionLimiterMiddleware(NewConnectionLimiter(limit)))
}

type requestIDKey struct{}

// RequestID returns the id stored by the request id middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware makes sure every request carries an X-Request-ID and
// echoes it back. The request context holds the id and is cancelled once the
// handler chain returns.
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
			c.Request().Header.Set(fiber.HeaderXRequestID, id)
		}
		c.Set(fiber.HeaderXRequestID, id)

		ctx, cancel := context.WithCancel(context.WithValue(c.Context(), requestIDKey{}, id))
		defer cancel()
		c.SetContext(ctx)
		return c.Next()
	}
}

// connectionLimiterMiddleware creates a middleware for connection limiting
func connectionLimiterMiddleware(limiter *ConnectionLimiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !limiter.Acquire() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Server is at maximum capacity")
		}
		defer limiter.Release()
		return c.Next()
	}
}

// panicRecoveryMiddleware creates a middleware for panic recovery
func panicRecoveryMiddleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"panic":      r,
					"method":     c.Method(),
					"path":       c.Path(),
					"ip":         c.IP(),
					"user_agent": c.Get("User-Agent"),
					"stack":      string(debug.Stack()),
				}).Errorf("Panic recovered")

				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Internal Server Error",
					"message": "An unexpected error occurred",
				})
				if err != nil {
					logger.WithField("error", err).Errorf("Failed to send error response")
				}
			}
		}()
		return c.Next()
	}
}
