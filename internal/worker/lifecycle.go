package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/logging"
)

// Lifecycle 管理缓存命名空间的安装预热与激活清理。
// Install/Activate 各自对应宿主的一次生命周期事件。
type Lifecycle struct {
	store     cache.Store
	fetch     Fetcher
	logger    *logrus.Logger
	messenger Messenger // 保留扩展点，核心不调用

	staticNamespace string
	apiNamespace    string
	precache        []*url.URL
}

// Install 打开当前版本的静态命名空间，并急切抓取全部预缓存 URL。
// 任一抓取失败则删除命名空间并整体失败，避免遗留残缺的静态集合；
// 宿主可凭返回错误重试。成功后立即宣告接管，不等待旧实例退出。
func (l *Lifecycle) Install(ctx context.Context) error {
	ns, err := l.store.Namespace(l.staticNamespace)
	if err != nil {
		return fmt.Errorf("open static namespace: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range l.precache {
		g.Go(func() error {
			req := Request{Method: http.MethodGet, URL: target}
			result, err := l.fetch.Fetch(gctx, req)
			if err != nil {
				return fmt.Errorf("precache %s: %w", target, err)
			}
			if result.Snapshot.Status != http.StatusOK {
				return fmt.Errorf("precache %s: unexpected status %d", target, result.Snapshot.Status)
			}
			return ns.Put(gctx, req.Key(), result.Snapshot)
		})
	}

	if err := g.Wait(); err != nil {
		if delErr := l.store.Delete(ctx, l.staticNamespace); delErr != nil {
			l.logger.WithError(delErr).
				WithFields(logging.LifecycleFields("install", l.staticNamespace)).
				Warn("install_rollback_failed")
		}
		l.logger.WithError(err).
			WithFields(logging.LifecycleFields("install", l.staticNamespace)).
			Error("install_failed")
		return err
	}

	fields := logging.LifecycleFields("install", l.staticNamespace)
	fields["precached"] = len(l.precache)
	fields["takeover"] = "immediate"
	l.logger.WithFields(fields).Info("install_complete")
	return nil
}

// Activate 枚举全部命名空间，并发删除既非当前静态也非 API 命名空间的版本。
// 删除彼此独立，单个失败不阻塞其余；全部完成后立即接管所有已打开页面。
func (l *Lifecycle) Activate(ctx context.Context) error {
	names, err := l.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	purged := 0
	for _, name := range names {
		if name == l.staticNamespace || name == l.apiNamespace {
			continue
		}
		purged++
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := l.store.Delete(ctx, name); err != nil {
				l.logger.WithError(err).
					WithFields(logging.LifecycleFields("activate", name)).
					Warn("namespace_purge_failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("purge %s: %w", name, err))
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()

	fields := logging.LifecycleFields("activate", l.staticNamespace)
	fields["purged"] = purged
	fields["failed"] = len(errs)
	fields["clients"] = "claimed"
	l.logger.WithFields(fields).Info("activate_complete")

	return errors.Join(errs...)
}
