package serialbin

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Wire-format primitives, spec §6.4. u32 is little-endian throughout;
// the spec allows either endianness as long as both ends agree, and
// little-endian matches the teacher's ion wire format.

func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	putU32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeRaw(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// writeString encodes a heap string as `u32 length; byte[length]` with no
// trailing NUL (spec §6.4).
func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return writeRaw(w, []byte(s))
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("serialbin: truncated string (wanted %d bytes): %w", n, err)
	}
	return string(buf), nil
}

// writeInternedString encodes an interned string per spec §4.3.4/§6.4:
// a registry index when reg is attached, otherwise a length-prefixed
// inline string (length 0 decodes back to the null interned string on
// read).
func writeInternedString(w io.Writer, s string, reg *Registry) error {
	if reg != nil {
		idx, err := reg.Intern(s)
		if err != nil {
			return err
		}
		return writeU32(w, idx)
	}
	return writeString(w, s)
}

func readInternedString(r io.Reader, reg *Registry) (string, error) {
	if reg != nil {
		idx, err := readU32(r)
		if err != nil {
			return "", err
		}
		s, ok := reg.Lookup(idx)
		if !ok {
			return "", fmt.Errorf("serialbin: interned string index %d out of range", idx)
		}
		return s, nil
	}
	return readString(r)
}
