package ops

import (
	stderrors "errors"
	"io"
	"io/fs"
	"os"

	"github.com/hpungsan/postclip/internal/errors"
)

func writing(flag int) bool {
	return flag&(os.O_WRONLY|os.O_RDWR) != 0
}

func symlinkRefused(flag int) error {
	if writing(flag) {
		return errors.NewInvalidRequest("cannot write to symlink")
	}
	return errors.NewInvalidRequest("cannot read from symlink")
}

// openError maps a missing file on read to FILE_NOT_FOUND and passes anything else through.
func openError(path string, flag int, err error) error {
	if !writing(flag) && stderrors.Is(err, fs.ErrNotExist) {
		return errors.NewFileNotFound(path)
	}
	return err
}

// openRead opens an import or saved-page file for reading.
func openRead(path string) (*os.File, error) {
	return openNoFollow(path, os.O_RDONLY, 0)
}

// openPage adapts openRead for extract.FileLoader.
func openPage(path string) (io.ReadCloser, error) {
	return openRead(path)
}
