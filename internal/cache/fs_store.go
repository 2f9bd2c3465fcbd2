package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NewStore 以 basePath 为根目录构建磁盘缓存，整站复用一份实例。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 避免同一条目并发写入，同时复用 basePath。
type fileStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// envelope 是快照在磁盘上的序列化形式，保留请求标识便于枚举恢复。
type envelope struct {
	Method string              `json:"method"`
	URL    string              `json:"url"`
	Status int                 `json:"status"`
	Header map[string][]string `json:"header"`
	Body   []byte              `json:"body"`
}

func (s *fileStore) Namespace(name string) (Namespace, error) {
	dir, err := s.namespacePath(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create namespace %s: %w", name, err)
	}
	return &fileNamespace{store: s, name: name, dir: dir}, nil
}

func (s *fileStore) List(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (s *fileStore) Delete(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dir, err := s.namespacePath(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete namespace %s: %w", name, err)
	}
	return nil
}

// namespacePath 校验命名空间名不会逃逸出 basePath。
func (s *fileStore) namespacePath(name string) (string, error) {
	if name == "" {
		return "", errors.New("namespace name required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid namespace name: %q", name)
	}
	return filepath.Join(s.basePath, name), nil
}

// fileNamespace 是单个命名空间目录的句柄，条目文件名为请求标识的 SHA-1。
type fileNamespace struct {
	store *fileStore
	name  string
	dir   string
}

func (n *fileNamespace) Name() string {
	return n.name
}

func (n *fileNamespace) Match(ctx context.Context, key Key) (*Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(n.entryPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}

	snap := &Snapshot{
		Status: env.Status,
		Header: http.Header(env.Header),
		Body:   env.Body,
	}
	if snap.Header == nil {
		snap.Header = http.Header{}
	}
	return snap, nil
}

func (n *fileNamespace) Put(ctx context.Context, key Key, snap *Snapshot) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if snap == nil {
		return errors.New("snapshot required")
	}

	unlock := n.store.lockEntry(n.name, key)
	defer unlock()

	env := envelope{
		Method: key.Method,
		URL:    key.URL,
		Status: snap.Status,
		Header: snap.Header,
		Body:   snap.Body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	filePath := n.entryPath(key)
	tempFile, err := os.CreateTemp(n.dir, ".entry-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (n *fileNamespace) Remove(ctx context.Context, key Key) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	unlock := n.store.lockEntry(n.name, key)
	defer unlock()

	if err := os.Remove(n.entryPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (n *fileNamespace) Keys(ctx context.Context) ([]Key, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(n.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var keys []Key
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(n.dir, entry.Name()))
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		keys = append(keys, Key{Method: env.Method, URL: env.URL})
	}
	return keys, nil
}

func (n *fileNamespace) entryPath(key Key) string {
	sum := sha1.Sum([]byte(key.String()))
	return filepath.Join(n.dir, hex.EncodeToString(sum[:])+".snap")
}

func (s *fileStore) lockEntry(namespace string, key Key) func() {
	lockKey := namespace + "::" + key.String()
	s.mu.Lock()
	lock := s.locks[lockKey]
	if lock == nil {
		lock = &entryLock{}
		s.locks[lockKey] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, lockKey)
		}
		s.mu.Unlock()
	}
}
