package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if err := validateNamespaceName(g.CacheVersion); err != nil {
		return fmt.Errorf("Global.CacheVersion: %w", err)
	}
	if err := validateNamespaceName(g.APICacheVersion); err != nil {
		return fmt.Errorf("Global.APICacheVersion: %w", err)
	}
	if g.FreshnessWindow.DurationValue() <= 0 {
		return newFieldError("Global.FreshnessWindow", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	s := c.Site
	if s.Name == "" {
		return newFieldError("Site.Name", "不能为空")
	}
	if err := validateUpstream(s.Upstream); err != nil {
		return fmt.Errorf("Site.Upstream: %w", err)
	}
	if err := validateUpstream(s.APIUpstream); err != nil {
		return fmt.Errorf("Site.APIUpstream: %w", err)
	}
	if !strings.HasPrefix(s.APIPrefix, "/") {
		return newFieldError("Site.APIPrefix", "必须以 / 开头")
	}
	for _, raw := range s.PrecacheURLs {
		if raw == "" || !strings.HasPrefix(raw, "/") {
			return newFieldError("Site.PrecacheURLs", fmt.Sprintf("路径必须以 / 开头: %q", raw))
		}
	}

	return nil
}

// validateNamespaceName 防止版本号里混入路径分隔符污染磁盘布局。
func validateNamespaceName(name string) error {
	if name == "" {
		return errors.New("不能为空")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New("不允许包含路径分隔符")
	}
	if strings.Contains(name, " ") {
		return errors.New("不允许包含空格")
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}
