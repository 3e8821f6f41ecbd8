package serialbin

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Registry is the bidirectional interned-string table (spec §3.3). A
// load-only registry only supports index->value lookups (no write-side
// lock needed, spec §5: "no lock for the load-only path"); a load-store
// registry also maintains the value->index side and is safe for
// concurrent Intern calls (spec §5: "one lock for the store path").
type Registry struct {
	mu      sync.Mutex
	strings []string
	reverse map[string]int // nil in load-only mode
}

// NewLoadOnlyRegistry returns an empty registry that can only be
// populated via ReadRegistry.
func NewLoadOnlyRegistry() *Registry {
	return &Registry{}
}

// NewLoadStoreRegistry returns an empty registry that also supports
// Intern (value -> index, allocating new indices as needed).
func NewLoadStoreRegistry() *Registry {
	return &Registry{reverse: make(map[string]int)}
}

// Len reports how many strings are currently interned.
func (r *Registry) Len() int { return len(r.strings) }

// Lookup resolves an index to its string, mirroring the read side of
// the wire format (spec §6.4). It takes no lock, matching the load-only
// path's no-lock guarantee; concurrent Intern calls on a load-store
// registry may race with Lookup for indices added concurrently, which
// is the caller's responsibility to serialize if needed.
func (r *Registry) Lookup(idx uint32) (string, bool) {
	if int(idx) >= len(r.strings) {
		return "", false
	}
	return r.strings[idx], true
}

// Intern returns s's dense index, allocating a new one if s has not been
// seen before. It fails on a load-only registry.
func (r *Registry) Intern(s string) (uint32, error) {
	if r.reverse == nil {
		return 0, errors.New("serialbin: Intern called on a load-only registry")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.reverse[s]; ok {
		return uint32(idx), nil
	}
	idx := len(r.strings)
	r.strings = append(r.strings, s)
	r.reverse[s] = idx
	return uint32(idx), nil
}

// WriteTo streams the registry's table out in the wire format of spec
// §6.4: a u32 count followed by that many length-prefixed strings.
func (r *Registry) WriteTo(w io.Writer) error {
	if err := writeU32(w, uint32(len(r.strings))); err != nil {
		return err
	}
	for _, s := range r.strings {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// ReadRegistry decodes a load-only registry from the wire format written
// by WriteTo.
func ReadRegistry(r io.Reader) (*Registry, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	reg := NewLoadOnlyRegistry()
	reg.strings = make([]string, count)
	for i := range reg.strings {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("serialbin: reading registry entry %d: %w", i, err)
		}
		reg.strings[i] = s
	}
	return reg, nil
}

// Fingerprint computes a stable digest of the registry's current
// index->value table, used by round-trip idempotence tests to confirm
// that writing then reading a registry reproduces the same mapping
// (spec §8: "Interned-string registry idempotence").
func (r *Registry) Fingerprint() ([32]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}
	var buf [4]byte
	for _, s := range r.strings {
		putU32(buf[:], uint32(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
