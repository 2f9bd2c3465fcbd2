package worker

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/page-vault/page-vault/internal/cache"
)

// fakeFetcher serves canned results keyed by URL and counts every call so
// tests can assert that cache hits never touch the network.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	results map[string]*FetchResult
	errs    map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: make(map[string]*FetchResult),
		errs:    make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (*FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	target := req.URL.String()
	if err, ok := f.errs[target]; ok {
		return nil, err
	}
	if result, ok := f.results[target]; ok {
		return result.Clone(), nil
	}
	return nil, &url.Error{Op: "Get", URL: target, Err: io.EOF}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) serve(rawURL string, status int, body string) {
	f.serveFrom(rawURL, rawURL, status, body)
}

// serveFrom simulates a redirect: the response's final URL differs from the
// requested one, which the static strategy treats as cross-origin.
func (f *fakeFetcher) serveFrom(rawURL, finalURL string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[rawURL] = &FetchResult{
		Snapshot: &cache.Snapshot{
			Status: status,
			Header: http.Header{"Content-Type": []string{"text/plain"}},
			Body:   []byte(body),
		},
		FinalURL: mustParse(finalURL),
	}
}

func (f *fakeFetcher) fail(rawURL string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[rawURL] = err
}

// failingStore wraps a real store and fails Delete for selected namespaces.
type failingStore struct {
	cache.Store
	deleteErrs map[string]error
}

func (s *failingStore) Delete(ctx context.Context, name string) error {
	if err, ok := s.deleteErrs[name]; ok {
		return err
	}
	return s.Store.Delete(ctx, name)
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func getRequest(raw string) Request {
	return Request{Method: http.MethodGet, URL: mustParse(raw)}
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func fixedClock(at time.Time) Clock {
	return ClockFunc(func() time.Time { return at })
}

func entryCount(t *testing.T, store cache.Store, namespace string) int {
	t.Helper()
	ns, err := store.Namespace(namespace)
	if err != nil {
		t.Fatalf("open namespace error: %v", err)
	}
	keys, err := ns.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys error: %v", err)
	}
	return len(keys)
}
