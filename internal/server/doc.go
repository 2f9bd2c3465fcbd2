// Package server hosts the Fiber HTTP service that adapts real traffic onto
// the worker dispatcher's install/activate/intercept hooks. It owns the
// request middleware chain (request IDs, panic recovery), the target resolver
// that maps incoming paths onto the static and API origins, the shared
// upstream HTTP client, the TCP connectivity probe, and the passthrough
// forwarder used for requests the dispatcher declines to handle. Keep exports
// narrow and accept explicit dependencies so cmd wiring and tests can inject
// fakes.
package server
