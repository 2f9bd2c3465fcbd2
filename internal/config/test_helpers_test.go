package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func validConfig() string {
	return `
LogLevel = "info"
StoragePath = "./data"
CacheVersion = "v2"
APICacheVersion = "v1"
FreshnessWindow = "5m"

[Site]
Name = "pages"
Upstream = "https://pages.example.com"
APIUpstream = "https://api.example.com"
PrecacheURLs = ["/", "/index.html", "/css/app.css"]
`
}
