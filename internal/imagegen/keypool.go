// Package imagegen generates festival images through an OpenRouter-compatible
// API with API key rotation, exponential backoff retries, optional NAP
// relaying, and age-based cleanup of the generated files.
package imagegen

import (
	"errors"
	"sync"
)

// ErrNoKeys is returned when a KeyPool is created without credentials.
var ErrNoKeys = errors.New("api key pool is empty")

// KeyPool is an ordered set of API credentials with a rotation cursor. The
// cursor survives individual generation calls so quota use is spread across
// keys for the lifetime of the process.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyPool creates a pool over the given keys, preserving their order.
func NewKeyPool(keys []string) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	copied := make([]string, len(keys))
	copy(copied, keys)
	return &KeyPool{keys: copied}, nil
}

// Len returns the number of keys in the pool.
func (p *KeyPool) Len() int {
	return len(p.keys)
}

// Current returns the key under the cursor and its position in the
// configured order.
func (p *KeyPool) Current() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.cursor % len(p.keys)
	return idx, p.keys[idx]
}

// Rotate advances the cursor to the next key, wrapping at the end. Pools
// with a single key stay put.
func (p *KeyPool) Rotate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) > 1 {
		p.cursor = (p.cursor + 1) % len(p.keys)
	}
}
