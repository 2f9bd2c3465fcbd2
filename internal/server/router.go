package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/worker"
)

// Passthrough describes the fallback forwarder for requests the dispatcher
// declines to handle. It allows injecting fake forwarders during tests.
type Passthrough interface {
	Forward(c fiber.Ctx, req worker.Request) error
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Dispatcher *worker.Dispatcher
	Resolver   *TargetResolver
	Forwarder  Passthrough
	ListenPort int
}

const contextKeyRequestID = "_pagevault_request_id"

// NewApp builds a Fiber application that binds every incoming request to the
// dispatcher's intercept hook, with structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("target resolver is required")
	}
	if opts.Forwarder == nil {
		return nil, errors.New("passthrough forwarder is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}

		req := buildWorkerRequest(c, opts.Resolver)
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		snap, handled := opts.Dispatcher.OnIntercept(ctx, req)
		if handled {
			return writeSnapshot(c, snap)
		}
		return opts.Forwarder.Forward(c, req)
	})

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID 并回写响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// buildWorkerRequest 将 Fiber 请求翻译为核心的 Request 值。
func buildWorkerRequest(c fiber.Ctx, resolver *TargetResolver) worker.Request {
	uri := c.Request().URI()
	target := resolver.Resolve(string(uri.Path()), string(uri.QueryString()))
	return worker.Request{
		Method: c.Method(),
		URL:    target,
		Header: fiberHeadersAsHTTP(c),
		Body:   append([]byte(nil), c.Body()...),
	}
}

// writeSnapshot 将策略产出的快照写回调用方。
func writeSnapshot(c fiber.Ctx, snap *cache.Snapshot) error {
	for key, values := range snap.Header {
		if IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Set(key, value)
		}
	}
	if len(snap.Body) > 0 {
		c.Response().Header.SetContentLength(len(snap.Body))
	}
	c.Status(snap.Status)

	if c.Method() == http.MethodHead {
		return nil
	}
	_, err := c.Response().BodyWriter().Write(snap.Body)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("write snapshot failed: %v", err))
	}
	return nil
}

func fiberHeadersAsHTTP(c fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return header
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
