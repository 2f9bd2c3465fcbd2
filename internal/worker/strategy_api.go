package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/logging"
)

// apiStrategy 实现 network-first 策略：永远先走网络，
// 失败时退回 API 命名空间内未过期的快照，最后兜底 503 信封。
type apiStrategy struct {
	store  cache.Store
	fetch  Fetcher
	logger *logrus.Logger
	clock  Clock
	probe  ConnectivityProbe

	site      string
	namespace string
	window    time.Duration

	flight singleflight.Group
}

// Handle 保证任何代码路径都产出一个快照。
func (s *apiStrategy) Handle(ctx context.Context, req Request) *cache.Snapshot {
	result, err := s.fetchOnce(ctx, req)
	if err == nil && isSuccessStatus(result.Snapshot.Status) {
		s.storeSnapshot(ctx, req, result.Snapshot)
		s.logIntercept(req, "network")
		return result.Snapshot
	}
	return s.fallback(ctx, req, result, err)
}

// fetchOnce 对 GET 请求用 singleflight 合并并发的同键网络抓取；
// 共享结果按调用方各自 Clone，避免多个任务触碰同一份响应体。
func (s *apiStrategy) fetchOnce(ctx context.Context, req Request) (*FetchResult, error) {
	if req.Method != http.MethodGet {
		return s.fetch.Fetch(ctx, req)
	}

	value, err, shared := s.flight.Do(req.Key().String(), func() (interface{}, error) {
		return s.fetch.Fetch(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	result := value.(*FetchResult)
	if shared {
		result = result.Clone()
	}
	return result, nil
}

// storeSnapshot 克隆成功响应、注入写入时间戳并落盘；写失败只告警，
// 不影响已经拿到的网络响应。
func (s *apiStrategy) storeSnapshot(ctx context.Context, req Request, snap *cache.Snapshot) {
	ns, err := s.store.Namespace(s.namespace)
	if err != nil {
		s.logger.WithError(err).
			WithFields(logging.LifecycleFields("api_cache", s.namespace)).
			Warn("namespace_open_failed")
		return
	}

	stored := snap.Clone()
	stored.MarkStoredAt(s.clock.Now())
	if err := ns.Put(ctx, req.Key(), stored); err != nil {
		s.logger.WithError(err).
			WithFields(logging.LifecycleFields("api_cache", s.namespace)).
			Warn("cache_put_failed")
	}
}

// fallback 依次尝试：窗口内的缓存快照 → 惰性清除过期条目 → 503 信封。
func (s *apiStrategy) fallback(ctx context.Context, req Request, result *FetchResult, fetchErr error) *cache.Snapshot {
	ns, nsErr := s.store.Namespace(s.namespace)
	if nsErr == nil {
		snap, matchErr := ns.Match(ctx, req.Key())
		switch {
		case matchErr == nil:
			if at, ok := snap.StoredAt(); ok && s.clock.Now().Sub(at) <= s.window {
				s.logIntercept(req, "cache")
				return snap
			}
			// 过期条目绝不静默返回，当场清除后落入兜底。
			if err := ns.Remove(ctx, req.Key()); err != nil {
				s.logger.WithError(err).
					WithFields(logging.LifecycleFields("api_cache", s.namespace)).
					Warn("expired_entry_remove_failed")
			}
		case !errors.Is(matchErr, cache.ErrNotFound):
			s.logger.WithError(matchErr).
				WithFields(logging.LifecycleFields("api_cache", s.namespace)).
				Warn("cache_match_failed")
		}
	}

	offline := !s.probe.Online()
	code := "network_error"
	message := "upstream request failed and no fresh cache entry is available"
	if offline {
		code = "offline"
	}
	if fetchErr == nil && result != nil {
		message = "upstream returned an error status and no fresh cache entry is available"
	}

	s.logIntercept(req, "fallback")
	return newAPIFallback(code, message, offline)
}

func (s *apiStrategy) logIntercept(req Request, source string) {
	s.logger.WithFields(logging.InterceptFields(s.site, "api", req.Method, req.URL.String(), source)).
		Info("intercept_complete")
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
