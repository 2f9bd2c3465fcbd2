package cache

import (
	"context"
	"errors"
)

// Key 是缓存条目的请求标识：方法 + 完整 URL。
type Key struct {
	Method string
	URL    string
}

// String 返回稳定的标识串，存储层以此派生磁盘文件名。
func (k Key) String() string {
	return k.Method + " " + k.URL
}

// Namespace 是单个版本化命名空间的句柄，提供按请求标识的读写删除能力。
// 单个条目的 Match/Put/Remove 由实现保证各自原子，跨条目不做事务。
type Namespace interface {
	// Name 返回命名空间名。
	Name() string

	// Match 按请求标识查找快照。若不存在则返回 ErrNotFound。
	Match(ctx context.Context, key Key) (*Snapshot, error)

	// Put 以全量替换语义写入快照，实现需通过临时文件 + rename 保证原子性。
	Put(ctx context.Context, key Key, snap *Snapshot) error

	// Remove 删除条目；条目不存在不视为错误。
	Remove(ctx context.Context, key Key) error

	// Keys 枚举当前命名空间的全部请求标识，供诊断端与测试统计条目数。
	Keys(ctx context.Context) ([]Key, error)
}

// Store 管理命名空间的创建、枚举与整体删除。
type Store interface {
	// Namespace 返回命名空间句柄，不存在时惰性创建。
	Namespace(name string) (Namespace, error)

	// List 枚举当前存在的所有命名空间名。
	List(ctx context.Context) ([]string, error)

	// Delete 整体删除一个命名空间及其全部条目。
	Delete(ctx context.Context, name string) error
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
