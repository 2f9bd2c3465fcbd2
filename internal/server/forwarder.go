package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/logging"
	"github.com/page-vault/page-vault/internal/worker"
)

// Forwarder 直连转发不归核心策略管的请求（非 GET 的非 API 请求），
// 不读写任何缓存，仅做头部透传与响应流式回写。
type Forwarder struct {
	client *http.Client
	logger *logrus.Logger
	site   string
}

// NewForwarder 基于共享 http.Client 构建透传转发器。
func NewForwarder(client *http.Client, logger *logrus.Logger, site string) *Forwarder {
	return &Forwarder{
		client: client,
		logger: logger,
		site:   site,
	}
}

// Forward 实现 Passthrough。上游失败时返回 502，
// 不走缓存兜底——这是默认网络处理的直接等价物。
func (f *Forwarder) Forward(c fiber.Ctx, req worker.Request) error {
	started := time.Now()
	requestID := RequestID(c)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	body := io.Reader(http.NoBody)
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	CopyHeaders(upstreamReq.Header, req.Header)
	upstreamReq.Host = req.URL.Host
	upstreamReq.Header.Set("X-Forwarded-Host", c.Hostname())
	if ip := c.IP(); ip != "" {
		upstreamReq.Header.Set("X-Forwarded-For", ip)
	}
	upstreamReq.Header.Set("X-Forwarded-Proto", c.Protocol())

	resp, err := f.client.Do(upstreamReq)
	if err != nil {
		f.logForward(req, 0, requestID, started, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_failed"})
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Set(key, value)
		}
	}
	c.Status(resp.StatusCode)

	_, copyErr := io.Copy(c.Response().BodyWriter(), resp.Body)
	f.logForward(req, resp.StatusCode, requestID, started, copyErr)
	if copyErr != nil {
		return fiber.NewError(fiber.StatusBadGateway, copyErr.Error())
	}
	return nil
}

func (f *Forwarder) logForward(req worker.Request, status int, requestID string, started time.Time, err error) {
	fields := logging.InterceptFields(f.site, "passthrough", req.Method, req.URL.String(), "network")
	fields["upstream_status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		f.logger.WithFields(fields).Error("passthrough_failed")
		return
	}
	f.logger.WithFields(fields).Info("passthrough_complete")
}
