//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"
)

// openNoFollow opens path with O_NOFOLLOW|O_CLOEXEC. A symlink in the final
// component fails with INVALID_REQUEST. Directory components are covered by
// ValidatePath, which only admits files directly inside an allowed directory.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, symlinkRefused(flag)
		}
		return nil, openError(path, flag, &os.PathError{Op: "open", Path: path, Err: err})
	}
	return os.NewFile(uintptr(fd), path), nil
}
