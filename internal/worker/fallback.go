package worker

import (
	"encoding/json"
	"net/http"

	"github.com/page-vault/page-vault/internal/cache"
)

// apiErrorEnvelope 是 API 策略在网络与缓存都不可用时的兜底响应体。
type apiErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Offline bool   `json:"offline"`
}

// staticErrorEnvelope 是静态策略在网络失败且无缓存时的兜底响应体。
type staticErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newAPIFallback(code, message string, offline bool) *cache.Snapshot {
	return newJSONSnapshot(http.StatusServiceUnavailable, apiErrorEnvelope{
		Error:   code,
		Message: message,
		Offline: offline,
	})
}

func newStaticFallback(message string) *cache.Snapshot {
	return newJSONSnapshot(http.StatusServiceUnavailable, staticErrorEnvelope{
		Error:   "offline",
		Message: message,
	})
}

func newJSONSnapshot(status int, payload any) *cache.Snapshot {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(`{"error":"internal"}`)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")
	return &cache.Snapshot{
		Status: status,
		Header: header,
		Body:   body,
	}
}
