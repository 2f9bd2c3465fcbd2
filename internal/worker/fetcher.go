package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/page-vault/page-vault/internal/cache"
)

// Request 描述一次被拦截的出站请求，URL 为解析后的完整目标地址。
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Key 返回请求标识，缓存条目以此为键。
func (r Request) Key() cache.Key {
	return cache.Key{Method: r.Method, URL: r.URL.String()}
}

// FetchResult 组合网络响应快照与重定向后的最终地址，
// 静态策略依赖 FinalURL 判断响应是否同源。
type FetchResult struct {
	Snapshot *cache.Snapshot
	FinalURL *url.URL
}

// Fetcher 执行真实的上游请求。返回 error 表示传输层失败；
// 非 2xx 状态由调用方按各自策略处理。
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*FetchResult, error)
}

// NewHTTPFetcher 基于共享 http.Client 构建 Fetcher。
func NewHTTPFetcher(client *http.Client) (Fetcher, error) {
	if client == nil {
		return nil, errors.New("http client required")
	}
	return &httpFetcher{client: client}, nil
}

type httpFetcher struct {
	client *http.Client
}

// Fetch 执行请求并将响应体完整读入快照。响应体是单次读取的流，
// 在此一次性物化为字节，后续缓存/返回各自 Clone。
func (f *httpFetcher) Fetch(ctx context.Context, req Request) (*FetchResult, error) {
	if req.URL == nil {
		return nil, errors.New("request url required")
	}

	body := io.Reader(http.NoBody)
	if len(req.Body) > 0 {
		body = strings.NewReader(string(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Del("Accept-Encoding")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return &FetchResult{
		Snapshot: &cache.Snapshot{
			Status: resp.StatusCode,
			Header: resp.Header.Clone(),
			Body:   payload,
		},
		FinalURL: finalURL,
	}, nil
}

// Clone 深拷贝结果，singleflight 共享的响应必须按调用方各自复制。
func (r *FetchResult) Clone() *FetchResult {
	if r == nil {
		return nil
	}
	dup := &FetchResult{Snapshot: r.Snapshot.Clone()}
	if r.FinalURL != nil {
		u := *r.FinalURL
		dup.FinalURL = &u
	}
	return dup
}
