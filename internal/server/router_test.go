package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/config"
	"github.com/page-vault/page-vault/internal/worker"
)

type stubForwarder struct {
	calls atomic.Int64
}

func (s *stubForwarder) Forward(c fiber.Ctx, req worker.Request) error {
	s.calls.Add(1)
	return c.SendStatus(fiber.StatusNoContent)
}

type appFixture struct {
	app       *fiber.App
	forwarder *stubForwarder
	hits      *atomic.Int64
}

func newTestApp(t *testing.T) *appFixture {
	t.Helper()

	var hits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>pages</html>"))
	}))
	t.Cleanup(upstream.Close)

	resolver, err := NewTargetResolver(config.SiteConfig{
		Name:        "pages",
		Upstream:    upstream.URL,
		APIUpstream: "http://api.invalid.local",
		APIPrefix:   "/api",
	})
	if err != nil {
		t.Fatalf("resolver error: %v", err)
	}

	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store error: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := &http.Client{Timeout: 5 * time.Second}
	fetcher, err := worker.NewHTTPFetcher(client)
	if err != nil {
		t.Fatalf("fetcher error: %v", err)
	}

	apiURL, _ := url.Parse("http://api.invalid.local")
	dispatcher, err := worker.NewDispatcher(worker.Options{
		Store:           store,
		Fetcher:         fetcher,
		Logger:          logger,
		SiteName:        "pages",
		APIHost:         apiURL.Host,
		StaticNamespace: "v1",
		APINamespace:    "api-v1",
	})
	if err != nil {
		t.Fatalf("dispatcher error: %v", err)
	}

	forwarder := &stubForwarder{}
	app, err := NewApp(AppOptions{
		Logger:     logger,
		Dispatcher: dispatcher,
		Resolver:   resolver,
		Forwarder:  forwarder,
		ListenPort: 5000,
	})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}

	return &appFixture{app: app, forwarder: forwarder, hits: &hits}
}

func TestAppServesStaticThroughDispatcher(t *testing.T) {
	fixture := newTestApp(t)

	req := httptest.NewRequest("GET", "http://pages.local/index.html", nil)
	resp, err := fixture.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<html>pages</html>" {
		t.Fatalf("unexpected body: %s", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestAppSecondStaticRequestIsServedFromCache(t *testing.T) {
	fixture := newTestApp(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "http://pages.local/index.html", nil)
		resp, err := fixture.app.Test(req)
		if err != nil {
			t.Fatalf("app.Test error: %v", err)
		}
		resp.Body.Close()
	}

	if got := fixture.hits.Load(); got != 1 {
		t.Fatalf("expected a single upstream fetch, saw %d", got)
	}
}

func TestAppRoutesNonGETToPassthrough(t *testing.T) {
	fixture := newTestApp(t)

	req := httptest.NewRequest("POST", "http://pages.local/upload", nil)
	resp, err := fixture.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected stub forwarder response, got %d", resp.StatusCode)
	}
	if fixture.forwarder.calls.Load() != 1 {
		t.Fatalf("expected one passthrough call, saw %d", fixture.forwarder.calls.Load())
	}
	if fixture.hits.Load() != 0 {
		t.Fatalf("passthrough should not reach the static upstream directly")
	}
}

func TestNewAppValidatesOptions(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if _, err := NewApp(AppOptions{Logger: logger}); err == nil {
		t.Fatalf("missing dependencies should fail")
	}
}
