package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/config"
	"github.com/page-vault/page-vault/internal/logging"
	"github.com/page-vault/page-vault/internal/server"
	"github.com/page-vault/page-vault/internal/server/routes"
	"github.com/page-vault/page-vault/internal/version"
	"github.com/page-vault/page-vault/internal/worker"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["site"] = cfg.Site.Name
		fields["precache_urls"] = len(cfg.Site.PrecacheURLs)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 磁盘缓存 → Dispatcher → install/activate → Fiber server”
	// 顺序，与宿主生命周期事件的语义一一对应。
	store, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	resolver, err := server.NewTargetResolver(cfg.Site)
	if err != nil {
		fmt.Fprintf(stdErr, "解析站点上游失败: %v\n", err)
		return 1
	}

	httpClient := server.NewUpstreamClient(cfg)
	fetcher, err := worker.NewHTTPFetcher(httpClient)
	if err != nil {
		fmt.Fprintf(stdErr, "构建上游抓取器失败: %v\n", err)
		return 1
	}

	dispatcher, err := worker.NewDispatcher(worker.Options{
		Store:           store,
		Fetcher:         fetcher,
		Logger:          logger,
		Probe:           server.NewDialProbe(resolver.APIURL()),
		SiteName:        cfg.Site.Name,
		APIHost:         resolver.APIHost(),
		StaticNamespace: cfg.Global.StaticNamespace(),
		APINamespace:    cfg.Global.APINamespace(),
		FreshnessWindow: cfg.Global.FreshnessWindow.DurationValue(),
		PrecacheURLs:    resolver.PrecacheTargets(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建 Dispatcher 失败: %v\n", err)
		return 1
	}

	ctx := context.Background()
	if err := dispatcher.OnInstall(ctx); err != nil {
		fmt.Fprintf(stdErr, "安装阶段失败: %v\n", err)
		return 1
	}
	if err := dispatcher.OnActivate(ctx); err != nil {
		// 激活清理的失败不阻塞服务，残留命名空间下次激活再清。
		logger.WithError(err).Warn("激活清理未完全成功")
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["site"] = cfg.Site.Name
	fields["listen_port"] = cfg.Global.ListenPort
	fields["static_namespace"] = cfg.Global.StaticNamespace()
	fields["api_namespace"] = cfg.Global.APINamespace()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, store, dispatcher, resolver, httpClient, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("page-vault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 PAGE_VAULT_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("PAGE_VAULT_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(
	cfg *config.Config,
	store cache.Store,
	dispatcher *worker.Dispatcher,
	resolver *server.TargetResolver,
	httpClient *http.Client,
	logger *logrus.Logger,
) error {
	port := cfg.Global.ListenPort
	forwarder := server.NewForwarder(httpClient, logger, cfg.Site.Name)

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Dispatcher: dispatcher,
		Resolver:   resolver,
		Forwarder:  forwarder,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterStatusRoutes(app, routes.StatusOptions{
		Store:           store,
		SiteName:        cfg.Site.Name,
		StaticNamespace: cfg.Global.StaticNamespace(),
		APINamespace:    cfg.Global.APINamespace(),
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
