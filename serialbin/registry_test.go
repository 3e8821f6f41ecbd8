package serialbin

import (
	"bytes"
	"testing"
)

func TestRegistryInternIsIdempotent(t *testing.T) {
	reg := NewLoadStoreRegistry()
	i1, err := reg.Intern("alpha")
	if err != nil {
		t.Fatal(err)
	}
	i2, err := reg.Intern("beta")
	if err != nil {
		t.Fatal(err)
	}
	i3, err := reg.Intern("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if i1 != i3 {
		t.Fatalf("interning the same string twice produced different indices: %d vs %d", i1, i3)
	}
	if i1 == i2 {
		t.Fatalf("distinct strings got the same index")
	}
}

func TestLoadOnlyRegistryRejectsIntern(t *testing.T) {
	reg := NewLoadOnlyRegistry()
	if _, err := reg.Intern("x"); err == nil {
		t.Fatal("expected Intern on a load-only registry to fail")
	}
}

func TestRegistryWireRoundTrip(t *testing.T) {
	reg := NewLoadStoreRegistry()
	for _, s := range []string{"foo", "", "bar", "baz"} {
		if _, err := reg.Intern(s); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := reg.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadRegistry(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != reg.Len() {
		t.Fatalf("round-tripped registry has %d entries, want %d", got.Len(), reg.Len())
	}
	for i := 0; i < reg.Len(); i++ {
		want, _ := reg.Lookup(uint32(i))
		have, ok := got.Lookup(uint32(i))
		if !ok || have != want {
			t.Fatalf("index %d: got %q, want %q", i, have, want)
		}
	}
	wantFP, err := reg.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	gotFP, err := got.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if wantFP != gotFP {
		t.Fatalf("fingerprint mismatch after round-trip: %x vs %x", gotFP, wantFP)
	}
}

func TestInternedStringIndexOutOfRangeFails(t *testing.T) {
	reg := NewLoadOnlyRegistry()
	if _, ok := reg.Lookup(3); ok {
		t.Fatal("expected Lookup on empty registry to fail")
	}
}
