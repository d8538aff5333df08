package cache

import (
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilExecutor = errors.New("cache: executor is nil")
	ErrInvalidKey  = errors.New("cache: key is invalid")
	ErrKeyTooLong  = errors.New("cache: key exceeds max length")
	ErrNoFetcher   = errors.New("cache: query has no fetch function")
	ErrNoMutator   = errors.New("cache: mutation has no request function")
	ErrResultType  = errors.New("cache: cached data has unexpected type")
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	// StatusIdle means the entry exists but has never been fetched, or was reset.
	StatusIdle Status = iota
	// StatusLoading means a request for the entry is in flight.
	StatusLoading
	// StatusSuccess means the entry holds data from the last request.
	StatusSuccess
	// StatusError means the last request failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is a point-in-time copy of a cached query result.
type Entry struct {
	Key         string
	Endpoint    string
	Data        any
	Err         error
	Status      Status
	Tags        []Tag
	Stale       bool
	Fetching    bool
	Subscribers int
	UpdatedAt   time.Time
}

// HasData reports whether the entry carries data, possibly stale.
func (e Entry) HasData() bool {
	return e.Data != nil
}

// Fresh reports whether the entry can be served without a request.
func (e Entry) Fresh() bool {
	return e.Status == StatusSuccess && !e.Stale
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
