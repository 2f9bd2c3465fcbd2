package worker

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/logging"
)

// staticStrategy 实现 cache-first 策略：命中即返回且不触网，
// 未命中回源并尽力写缓存，网络失败时兜底离线信封。
type staticStrategy struct {
	store  cache.Store
	fetch  Fetcher
	logger *logrus.Logger

	site      string
	namespace string
}

// Handle 保证任何代码路径都产出一个快照。
func (s *staticStrategy) Handle(ctx context.Context, req Request) *cache.Snapshot {
	ns, nsErr := s.store.Namespace(s.namespace)
	if nsErr != nil {
		s.logger.WithError(nsErr).
			WithFields(logging.LifecycleFields("static_cache", s.namespace)).
			Warn("namespace_open_failed")
	} else {
		snap, err := ns.Match(ctx, req.Key())
		if err == nil {
			s.logIntercept(req, "cache")
			return snap
		}
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.WithError(err).
				WithFields(logging.LifecycleFields("static_cache", s.namespace)).
				Warn("cache_match_failed")
		}
	}

	result, fetchErr := s.fetch.Fetch(ctx, req)
	if fetchErr != nil {
		s.logger.WithError(fetchErr).
			WithFields(logging.InterceptFields(s.site, "static", req.Method, req.URL.String(), "fallback")).
			Warn("upstream_unreachable")
		return newStaticFallback("origin unreachable and asset not cached")
	}

	// 仅缓存同源的 200 响应；跨域或非 200 直接透传且不落盘。
	if ns != nil && result.Snapshot.Status == http.StatusOK && sameOrigin(req.URL, result.FinalURL) {
		if err := ns.Put(ctx, req.Key(), result.Snapshot.Clone()); err != nil {
			s.logger.WithError(err).
				WithFields(logging.LifecycleFields("static_cache", s.namespace)).
				Warn("cache_put_failed")
		}
	}

	s.logIntercept(req, "network")
	return result.Snapshot
}

func (s *staticStrategy) logIntercept(req Request, source string) {
	s.logger.WithFields(logging.InterceptFields(s.site, "static", req.Method, req.URL.String(), source)).
		Info("intercept_complete")
}

func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
