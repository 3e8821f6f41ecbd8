//go:build linux

package reflectgen

import "golang.org/x/sys/unix"

// statRegular confirms path is a regular file using a raw stat(2) call,
// mirroring the mmap/stat syscall style cmd/sdb/mmap_linux.go uses for
// filesystem probing rather than going through os.Stat.
func statRegular(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFREG
}
