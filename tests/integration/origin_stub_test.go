package integration

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"
)

// originStub 模拟站点或 API 上游：按路径注册响应并统计命中次数，
// Close 后端口立即失效，用于模拟断网。
type originStub struct {
	server   *http.Server
	listener net.Listener
	URL      string

	mu        sync.Mutex
	closed    bool
	hits      map[string]int
	responses map[string]stubResponse
}

type stubResponse struct {
	status      int
	body        []byte
	contentType string
	redirect    string
}

func newOriginStub(t *testing.T) *originStub {
	t.Helper()
	stub := &originStub{
		hits:      map[string]int{},
		responses: map[string]stubResponse{},
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start stub listener: %v", err)
	}

	server := &http.Server{Handler: http.HandlerFunc(stub.handle)}
	stub.server = server
	stub.listener = listener
	stub.URL = "http://" + listener.Addr().String()

	go func() {
		_ = server.Serve(listener)
	}()

	return stub
}

func (s *originStub) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
	_ = s.listener.Close()
}

// serve 注册 200 文本响应。
func (s *originStub) serve(path string, body string) {
	s.setResponse(path, stubResponse{status: http.StatusOK, body: []byte(body), contentType: "text/html"})
}

// serveJSON 注册 200 JSON 响应。
func (s *originStub) serveJSON(path string, body string) {
	s.setResponse(path, stubResponse{status: http.StatusOK, body: []byte(body), contentType: "application/json"})
}

// serveStatus 注册指定状态码的空响应。
func (s *originStub) serveStatus(path string, status int) {
	s.setResponse(path, stubResponse{status: status, contentType: "text/plain"})
}

// redirectTo 注册 302 跳转，配合另一个 stub 模拟跨源重定向。
func (s *originStub) redirectTo(path, location string) {
	s.setResponse(path, stubResponse{status: http.StatusFound, redirect: location})
}

func (s *originStub) setResponse(path string, resp stubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = resp
}

func (s *originStub) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *originStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if resp.redirect != "" {
		http.Redirect(w, r, resp.redirect, resp.status)
		return
	}
	w.Header().Set("Content-Type", resp.contentType)
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)
}
