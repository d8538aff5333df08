package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer derives cache keys from a query endpoint and its arguments.
//
// Contract:
// - Determinism: equal arguments give equal keys, whatever the map order.
// - Purity: the key depends only on endpoint and args.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(endpoint string, args any) (string, error)
}

// DefaultKeyer hashes the canonical JSON form of the arguments.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns query:<endpoint>:<hash>, where hash is the first 16 hex
// characters of SHA-256 over the canonical JSON of args. A struct and a map
// with the same JSON fields share a key.
func (k *DefaultKeyer) Key(endpoint string, args any) (string, error) {
	if endpoint == "" {
		return "", ErrInvalidKey
	}
	canonical, err := canonicalJSON(args)
	if err != nil {
		return "", fmt.Errorf("cache: key for %s: %w", endpoint, err)
	}
	sum := sha256.Sum256(canonical)
	key := "query:" + endpoint + ":" + hex.EncodeToString(sum[:8])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// canonicalJSON encodes v, decodes it into generic values and encodes it
// again. encoding/json writes map keys sorted, so the second encoding no
// longer depends on field or insertion order. Numbers are kept verbatim.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

var _ Keyer = (*DefaultKeyer)(nil)
