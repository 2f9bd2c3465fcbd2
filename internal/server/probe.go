package server

import (
	"net"
	"net/url"
	"sync"
	"time"
)

// DialProbe 通过对 API 源站做廉价的 TCP 拨号探测连通性，
// 结果在短窗口内缓存，避免每次降级响应都触发一次拨号。
type DialProbe struct {
	address     string
	dialTimeout time.Duration
	cacheWindow time.Duration
	now         func() time.Time

	mu        sync.Mutex
	lastCheck time.Time
	lastState bool
}

// NewDialProbe 以上游 URL 构建探针，缺省端口按 scheme 推导。
func NewDialProbe(upstream *url.URL) *DialProbe {
	host := upstream.Host
	if upstream.Port() == "" {
		port := "80"
		if upstream.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(upstream.Hostname(), port)
	}
	return &DialProbe{
		address:     host,
		dialTimeout: 2 * time.Second,
		cacheWindow: 5 * time.Second,
		now:         time.Now,
	}
}

// Online 报告 API 源站当前是否可达。
func (p *DialProbe) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.lastCheck.IsZero() && now.Sub(p.lastCheck) < p.cacheWindow {
		return p.lastState
	}

	conn, err := net.DialTimeout("tcp", p.address, p.dialTimeout)
	if conn != nil {
		conn.Close()
	}
	p.lastCheck = now
	p.lastState = err == nil
	return p.lastState
}
