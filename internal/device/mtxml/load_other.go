//go:build !darwin && !freebsd && !linux && !windows

package mtxml

import (
	"errors"
	"runtime"
)

func openLibrary(path string) (uintptr, error) {
	return 0, errors.New("vendor library loading is not supported on " + runtime.GOOS)
}
