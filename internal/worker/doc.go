// Package worker implements the request-interception core: a Dispatcher that
// classifies every outgoing request as API or static asset and routes it to
// one of two caching strategies, plus the Lifecycle manager that provisions
// cache namespaces on install and purges stale ones on activate. The package
// is host-agnostic: the clock, connectivity probe, upstream fetcher, and
// client messenger are injected capabilities, and the HTTP server that binds
// lifecycle and intercept hooks to real traffic lives in internal/server.
// Every intercept path resolves to a concrete response snapshot; no request
// is ever left without an answer.
package worker
