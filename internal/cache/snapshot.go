package cache

import (
	"net/http"
	"strconv"
	"time"
)

// StoredAtHeader 标记 API 快照的写入时刻，值为毫秒级 Unix 时间戳字符串。
const StoredAtHeader = "X-Page-Vault-Stored-At"

// Snapshot 是响应在写入时刻的不可变副本。响应体是单次读取的流，
// 任何可能同时被缓存与返回调用方的响应都必须先 Clone 再分别消费。
type Snapshot struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone 返回深拷贝，调用方可独立修改头部而不影响原快照。
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	dup := &Snapshot{
		Status: s.Status,
		Header: s.Header.Clone(),
		Body:   append([]byte(nil), s.Body...),
	}
	if dup.Header == nil {
		dup.Header = http.Header{}
	}
	return dup
}

// MarkStoredAt 在快照头部注入写入时间戳。
func (s *Snapshot) MarkStoredAt(at time.Time) {
	if s.Header == nil {
		s.Header = http.Header{}
	}
	s.Header.Set(StoredAtHeader, strconv.FormatInt(at.UnixMilli(), 10))
}

// StoredAt 解析写入时间戳；缺失或损坏时第二个返回值为 false。
func (s *Snapshot) StoredAt() (time.Time, bool) {
	raw := s.Header.Get(StoredAtHeader)
	if raw == "" {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
