//go:build windows

package ops

import "os"

// openNoFollow opens path. Windows has no O_NOFOLLOW; creating symlinks there
// needs privileges and ValidatePath has already rejected one at path.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, openError(path, flag, err)
	}
	return f, nil
}
