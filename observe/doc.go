// Package observe provides logging, tracing and metrics for backend requests.
//
// The Logger is backed by zap and optionally writes to a rotated file. The
// Middleware wraps each REST request in a client span and records request
// counters and a duration histogram.
package observe
