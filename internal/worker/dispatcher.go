package worker

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/cache"
)

// Options 汇总 Dispatcher 的全部依赖与不可变配置。
// 命名空间名与新鲜度窗口在构造时注入，核心不读取任何全局状态。
type Options struct {
	Store     cache.Store
	Fetcher   Fetcher
	Logger    *logrus.Logger
	Clock     Clock
	Probe     ConnectivityProbe
	Messenger Messenger

	SiteName        string
	APIHost         string
	StaticNamespace string
	APINamespace    string
	FreshnessWindow time.Duration
	PrecacheURLs    []*url.URL
}

// Dispatcher 是核心的事件入口：OnInstall/OnActivate 驱动生命周期，
// OnIntercept 对每个出站请求做分类并委派给对应策略。
type Dispatcher struct {
	lifecycle *Lifecycle
	api       *apiStrategy
	static    *staticStrategy

	apiHost string
	logger  *logrus.Logger
}

// NewDispatcher 校验依赖并组装生命周期管理器与两个策略。
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.APIHost == "" {
		return nil, errors.New("api host is required")
	}
	if opts.StaticNamespace == "" || opts.APINamespace == "" {
		return nil, errors.New("namespace names are required")
	}
	if opts.StaticNamespace == opts.APINamespace {
		return nil, errors.New("static and api namespaces must differ")
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	probe := opts.Probe
	if probe == nil {
		probe = AlwaysOnline{}
	}
	messenger := opts.Messenger
	if messenger == nil {
		messenger = NoopMessenger{}
	}
	window := opts.FreshnessWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	return &Dispatcher{
		lifecycle: &Lifecycle{
			store:           opts.Store,
			fetch:           opts.Fetcher,
			logger:          opts.Logger,
			messenger:       messenger,
			staticNamespace: opts.StaticNamespace,
			apiNamespace:    opts.APINamespace,
			precache:        opts.PrecacheURLs,
		},
		api: &apiStrategy{
			store:     opts.Store,
			fetch:     opts.Fetcher,
			logger:    opts.Logger,
			clock:     clock,
			probe:     probe,
			site:      opts.SiteName,
			namespace: opts.APINamespace,
			window:    window,
		},
		static: &staticStrategy{
			store:     opts.Store,
			fetch:     opts.Fetcher,
			logger:    opts.Logger,
			site:      opts.SiteName,
			namespace: opts.StaticNamespace,
		},
		apiHost: opts.APIHost,
		logger:  opts.Logger,
	}, nil
}

// OnInstall 对应宿主的 install 事件。
func (d *Dispatcher) OnInstall(ctx context.Context) error {
	return d.lifecycle.Install(ctx)
}

// OnActivate 对应宿主的 activate 事件。
func (d *Dispatcher) OnActivate(ctx context.Context) error {
	return d.lifecycle.Activate(ctx)
}

// OnIntercept 分类并处理一个出站请求。第二个返回值为 false 时
// 表示请求不归本核心管（非 GET 的非 API 请求），宿主应放行默认处理。
func (d *Dispatcher) OnIntercept(ctx context.Context, req Request) (*cache.Snapshot, bool) {
	if req.URL == nil {
		return nil, false
	}
	if strings.EqualFold(req.URL.Host, d.apiHost) {
		return d.api.Handle(ctx, req), true
	}
	if req.Method == http.MethodGet {
		return d.static.Handle(ctx, req), true
	}
	return nil, false
}
