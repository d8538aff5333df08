package cache

import "time"

// Policy configures retention of cached entries.
type Policy struct {
	// KeepUnusedFor is how long an entry without subscribers is retained.
	// If zero, unreferenced entries are evicted as soon as they settle.
	KeepUnusedFor time.Duration

	// MaxUnused bounds the number of retained unreferenced entries.
	// Entries with subscribers never count against it.
	MaxUnused int

	// KeepStaleOnError keeps the previous data when a refetch fails.
	KeepStaleOnError bool
}

// DefaultPolicy returns the default retention policy.
// KeepUnusedFor: 60 seconds, MaxUnused: 1000, KeepStaleOnError: true
func DefaultPolicy() Policy {
	return Policy{
		KeepUnusedFor:    60 * time.Second,
		MaxUnused:        1000,
		KeepStaleOnError: true,
	}
}

// NoRetentionPolicy returns a policy that drops entries as soon as nothing
// references them.
func NoRetentionPolicy() Policy {
	return Policy{
		KeepUnusedFor:    0,
		MaxUnused:        0,
		KeepStaleOnError: true,
	}
}

// Retains returns true if unreferenced entries are kept at all.
func (p Policy) Retains() bool {
	return p.KeepUnusedFor > 0
}

// EffectiveMaxUnused returns the retention capacity, applying the default.
func (p Policy) EffectiveMaxUnused() int {
	if p.MaxUnused <= 0 {
		return 1000
	}
	return p.MaxUnused
}
