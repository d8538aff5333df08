// Package cache provides the tag-indexed query cache behind the storefront
// client.
//
// A Store maps cache keys to entries. Each entry carries the tags provided by
// the query that filled it. Query endpoints read through the Store
// cache-first and coalesce identical in-flight requests. Mutation endpoints
// invalidate entries by tag after a successful write, and subscribed entries
// are refetched in the background.
package cache
