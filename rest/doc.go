// Package rest is the HTTP adapter for the storefront backend.
//
// A Client resolves route templates against the configured base URL,
// attaches the bearer token, encodes JSON or multipart bodies and decodes
// JSON responses. Each call is traced and measured through an
// observe.Middleware and, when a guard is set, passes through a
// resilience.Executor.
//
// Failures come back in two shapes:
//
//   - *NetworkError: no response. Transport failures, timeouts and guard
//     rejections (open circuit, full bulkhead, rate limit).
//   - *ServerError: a non-2xx response, with the server's message pulled
//     from the JSON body.
//
// Requests are sent once. There is no automatic retry.
package rest
