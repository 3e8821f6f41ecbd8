package serialbin

import (
	"sync"
	"sync/atomic"

	"github.com/dchest/siphash"
)

// cacheHashKey{0,1} are fixed siphash keys used only to turn a type name
// into a cache bucket key, the way vm's siphash_generic.go uses siphash
// for hot-path string hashing rather than Go's built-in map hash.
const (
	cacheHashKey0 = 0x9ae16a3b2f90404f
	cacheHashKey1 = 0xc949d7c7509e6557
)

func cacheKey(name string) uint64 {
	return siphash.Hash(cacheHashKey0, cacheHashKey1, []byte(name))
}

// ScriptCache caches compiled Scripts keyed by type name, guaranteeing
// exactly-once generation per type under concurrent first touch (spec §5:
// "script cache is protected by a single lock guarding the storage plus
// one atomic flag per script node (double-checked-locking pattern)").
type ScriptCache struct {
	mu      sync.Mutex
	entries map[uint64]*scriptEntry
}

type scriptEntry struct {
	name  string
	ready atomic.Bool
	mu    sync.Mutex
	script *Script
	err   error
}

// GetOrBuild returns the cached script for name, building it via build
// exactly once even under concurrent callers.
func (c *ScriptCache) GetOrBuild(name string, build func() (*Script, error)) (*Script, error) {
	key := cacheKey(name)

	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[uint64]*scriptEntry)
	}
	e, ok := c.entries[key]
	if !ok {
		e = &scriptEntry{name: name}
		c.entries[key] = e
	}
	c.mu.Unlock()

	if e.ready.Load() {
		return e.script, e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready.Load() {
		return e.script, e.err
	}
	e.script, e.err = build()
	e.ready.Store(true)
	return e.script, e.err
}

// Get returns the already-cached script for name, if any, without
// triggering a build.
func (c *ScriptCache) Get(name string) (*Script, bool) {
	c.mu.Lock()
	e, ok := c.entries[cacheKey(name)]
	c.mu.Unlock()
	if !ok || !e.ready.Load() {
		return nil, false
	}
	return e.script, e.err == nil
}
