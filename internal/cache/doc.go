// Package cache defines the disk-backed namespace store that persists
// request→response snapshots under StoragePath/<namespace>/. Each namespace is
// an independent directory; bumping the namespace version in config is the
// only supported bulk-invalidation mechanism. Entries are serialized snapshot
// envelopes written atomically (temp file + rename) and keyed by a digest of
// the request identity (method + URL). The worker strategies depend on this
// package to look up, store, and lazily expire entries without duplicating
// filesystem logic.
package cache
