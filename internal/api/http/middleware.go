package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestContext gives each request a user context that expires after
// timeout and is cancelled once the handler returns. Record waits and
// outbound calls made by handlers observe it.
//
// fasthttp does not report client disconnects to handlers, so the deadline is
// what bounds work for a client that went away.
func RequestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(c.UserContext(), timeout)
		} else {
			ctx, cancel = context.WithCancel(c.UserContext())
		}
		defer cancel()

		c.SetUserContext(ctx)
		return c.Next()
	}
}
