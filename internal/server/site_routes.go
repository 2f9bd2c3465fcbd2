package server

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/page-vault/page-vault/internal/config"
)

// TargetResolver 将进入网关的路径映射为完整的上游目标地址：
// APIPrefix 之下的路径指向文件列表 API 源站，其余指向静态源站。
// 构造时一次性解析好两个源站 URL，请求路径上只做拼接。
type TargetResolver struct {
	static    *url.URL
	api       *url.URL
	apiPrefix string
	precache  []string
}

// NewTargetResolver 解析站点配置中的上游地址。
func NewTargetResolver(site config.SiteConfig) (*TargetResolver, error) {
	static, err := url.Parse(site.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	api, err := url.Parse(site.APIUpstream)
	if err != nil {
		return nil, fmt.Errorf("parse api upstream: %w", err)
	}
	if static.Host == "" || api.Host == "" {
		return nil, fmt.Errorf("upstream host required")
	}

	return &TargetResolver{
		static:    static,
		api:       api,
		apiPrefix: site.APIPrefix,
		precache:  site.PrecacheURLs,
	}, nil
}

// Resolve 返回请求路径对应的上游目标。API 前缀在转发前被剥除。
func (r *TargetResolver) Resolve(path, rawQuery string) *url.URL {
	if path == "" {
		path = "/"
	}

	base := r.static
	if trimmed, ok := r.trimAPIPrefix(path); ok {
		base = r.api
		path = trimmed
	}

	// 显式拼接路径，保留上游自带的基础路径（如 /v5）。
	target := *base
	target.Path = joinPath(base.Path, path)
	target.RawQuery = rawQuery
	return &target
}

func joinPath(basePath, path string) string {
	if basePath == "" || basePath == "/" {
		return path
	}
	return strings.TrimSuffix(basePath, "/") + path
}

// APIHost 返回 API 源站的 Host，拦截路由以此分类请求。
func (r *TargetResolver) APIHost() string {
	return r.api.Host
}

// APIURL 返回解析后的 API 源站地址，连通性探针以此为拨号目标。
func (r *TargetResolver) APIURL() *url.URL {
	u := *r.api
	return &u
}

// PrecacheTargets 将配置中的预缓存路径解析为静态源站上的完整地址。
func (r *TargetResolver) PrecacheTargets() []*url.URL {
	targets := make([]*url.URL, 0, len(r.precache))
	for _, path := range r.precache {
		target := *r.static
		target.Path = joinPath(r.static.Path, path)
		targets = append(targets, &target)
	}
	return targets
}

func (r *TargetResolver) trimAPIPrefix(path string) (string, bool) {
	if r.apiPrefix == "" || r.apiPrefix == "/" {
		return "", false
	}
	if path == r.apiPrefix {
		return "/", true
	}
	if strings.HasPrefix(path, r.apiPrefix+"/") {
		return path[len(r.apiPrefix):], true
	}
	return "", false
}
