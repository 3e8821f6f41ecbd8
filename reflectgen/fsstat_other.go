//go:build !linux

package reflectgen

import "os"

// statRegular is the portable fallback for non-Linux build targets.
func statRegular(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}
