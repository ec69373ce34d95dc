package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mobipaper/mobicache/internal/cache"
)

// EntryStore describes the cache operations the admin routes depend on.
// *cache.Store satisfies it; tests may inject fakes.
type EntryStore interface {
	Get(ctx context.Context, key cache.Key, tag cache.Tag) ([]byte, error)
	Put(ctx context.Context, key cache.Key, tag cache.Tag, data []byte, opts cache.PutOptions) error
	Remove(ctx context.Context, key cache.Key, tag cache.Tag) error
	Stat(key cache.Key, tag cache.Tag) (cache.Entry, error)
	Size() float64
	MaxSize() float64
	Dir() string
	Configured() bool
	RecognizedTags() []cache.Tag
	Purge(ctx context.Context) (cache.PurgeResult, error)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger       *logrus.Logger
	Store        EntryStore
	ListenPort   int
	MaxBodyBytes int
}

const (
	contextKeyRequestID = "_mobicache_request_id"

	defaultMaxBodyBytes = 32 * 1024 * 1024
)

// NewApp builds a Fiber application with request-id/access-log middleware and
// structured error handling. Routes are registered by the routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}
	bodyLimit := opts.MaxBodyBytes
	if bodyLimit <= 0 {
		bodyLimit = defaultMaxBodyBytes
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		BodyLimit:     bodyLimit,
		ErrorHandler:  jsonErrorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	return app, nil
}

// requestContextMiddleware 生成请求 ID，并在请求结束后输出一条访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		logger.WithFields(logrus.Fields{
			"action":      "access",
			"request_id":  reqID,
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request handled")
		return err
	}
}

func jsonErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"action":     "request_error",
				"request_id": RequestID(c),
				"path":       c.Path(),
			}).Error("unhandled error")
		}
		return c.Status(code).JSON(fiber.Map{"error": errorCode(code)})
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "route_not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	default:
		return "internal_error"
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
