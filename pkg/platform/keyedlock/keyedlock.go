// Package keyedlock serializes critical sections by string key. Locks are
// striped over a fixed set of mutexes, so a key never allocates and two keys
// hashing to the same stripe simply contend.
package keyedlock

import (
	"hash/fnv"
	"sync"
)

const stripeCount = 128

// Map is a striped set of mutexes keyed by string.
type Map struct {
	stripes [stripeCount]sync.Mutex
}

// New constructs an empty Map.
func New() *Map { return &Map{} }

// Lock acquires the stripe that owns key.
func (m *Map) Lock(key string) { m.stripe(key).Lock() }

// Unlock releases the stripe that owns key.
func (m *Map) Unlock(key string) { m.stripe(key).Unlock() }

func (m *Map) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &m.stripes[h.Sum32()%stripeCount]
}
