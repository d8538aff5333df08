package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/storeadmin/cache"
)

// StatsSource reports cache counters. *cache.Executor implements it.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheChecker reports the query cache's fill level. A full retention set
// means entries are being evicted before KeepUnusedFor elapses.
type CacheChecker struct {
	source StatsSource
}

// NewCacheChecker creates a cache checker.
func NewCacheChecker(source StatsSource) *CacheChecker {
	return &CacheChecker{source: source}
}

func (c *CacheChecker) Name() string { return "cache" }

func (c *CacheChecker) Check(context.Context) Result {
	s := c.source.Stats()
	details := map[string]any{
		"entries":       s.Store.Entries,
		"subscribed":    s.Store.Subscribed,
		"retained":      s.Store.Retained,
		"max_unused":    s.Store.MaxUnused,
		"evictions":     s.Store.Evictions,
		"hits":          s.Hits,
		"misses":        s.Misses,
		"requests":      s.Requests,
		"invalidations": s.Invalidations,
	}
	if reads := s.Hits + s.Misses; reads > 0 {
		details["hit_ratio"] = float64(s.Hits) / float64(reads)
	}

	msg := fmt.Sprintf("%d entries", s.Store.Entries)
	if s.Store.MaxUnused > 0 && s.Store.Retained >= s.Store.MaxUnused {
		return Degraded(msg + ", retention full").WithDetails(details)
	}
	return Healthy(msg).WithDetails(details)
}
