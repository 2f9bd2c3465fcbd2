package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/config"
	"github.com/page-vault/page-vault/internal/server"
	"github.com/page-vault/page-vault/internal/server/routes"
	"github.com/page-vault/page-vault/internal/worker"
)

// vaultOptions 控制集成测试中网关各可调部件的取值。
type vaultOptions struct {
	cacheVersion    string
	apiCacheVersion string
	window          time.Duration
	clock           worker.Clock
	probe           worker.ConnectivityProbe
	precacheURLs    []string
}

type vault struct {
	t          *testing.T
	app        *fiber.App
	dispatcher *worker.Dispatcher
	store      cache.Store
	static     *originStub
	api        *originStub
	cfg        *config.Config
	storage    string
}

func buildVault(t *testing.T, opts vaultOptions) *vault {
	t.Helper()

	if opts.cacheVersion == "" {
		opts.cacheVersion = "v1"
	}
	if opts.apiCacheVersion == "" {
		opts.apiCacheVersion = "v1"
	}

	static := newOriginStub(t)
	t.Cleanup(static.Close)
	api := newOriginStub(t)
	t.Cleanup(api.Close)

	storageDir := t.TempDir()
	cfg := &config.Config{
		Global: config.GlobalConfig{
			ListenPort:      5000,
			StoragePath:     storageDir,
			CacheVersion:    opts.cacheVersion,
			APICacheVersion: opts.apiCacheVersion,
			FreshnessWindow: config.Duration(5 * time.Minute),
			UpstreamTimeout: config.Duration(5 * time.Second),
		},
		Site: config.SiteConfig{
			Name:         "pages",
			Upstream:     static.URL,
			APIUpstream:  api.URL,
			APIPrefix:    "/api",
			PrecacheURLs: opts.precacheURLs,
		},
	}
	if opts.window > 0 {
		cfg.Global.FreshnessWindow = config.Duration(opts.window)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := cache.NewStore(storageDir)
	if err != nil {
		t.Fatalf("store error: %v", err)
	}

	resolver, err := server.NewTargetResolver(cfg.Site)
	if err != nil {
		t.Fatalf("resolver error: %v", err)
	}

	client := server.NewUpstreamClient(cfg)
	fetcher, err := worker.NewHTTPFetcher(client)
	if err != nil {
		t.Fatalf("fetcher error: %v", err)
	}

	dispatcher, err := worker.NewDispatcher(worker.Options{
		Store:           store,
		Fetcher:         fetcher,
		Logger:          logger,
		Clock:           opts.clock,
		Probe:           opts.probe,
		SiteName:        cfg.Site.Name,
		APIHost:         resolver.APIHost(),
		StaticNamespace: cfg.Global.StaticNamespace(),
		APINamespace:    cfg.Global.APINamespace(),
		FreshnessWindow: cfg.Global.FreshnessWindow.DurationValue(),
		PrecacheURLs:    resolver.PrecacheTargets(),
	})
	if err != nil {
		t.Fatalf("dispatcher error: %v", err)
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Dispatcher: dispatcher,
		Resolver:   resolver,
		Forwarder:  server.NewForwarder(client, logger, cfg.Site.Name),
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}
	routes.RegisterStatusRoutes(app, routes.StatusOptions{
		Store:           store,
		SiteName:        cfg.Site.Name,
		StaticNamespace: cfg.Global.StaticNamespace(),
		APINamespace:    cfg.Global.APINamespace(),
	})

	return &vault{
		t:          t,
		app:        app,
		dispatcher: dispatcher,
		store:      store,
		static:     static,
		api:        api,
		cfg:        cfg,
		storage:    storageDir,
	}
}

func (v *vault) request(method, target string, header http.Header) *http.Response {
	v.t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Host = "pages.local"
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	resp, err := v.app.Test(req)
	if err != nil {
		v.t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}
