package util

import (
	"os"

	"github.com/pkg/errors"
)

// ErrNotDirectory is returned when a directory is expected
// but something else already occupies its path
var ErrNotDirectory = errors.New("path exists but is not a directory")

// CreateDirectoryIfNotExists creates a directory along with its parents,
// an existing directory is left untouched
func CreateDirectoryIfNotExists(path string, mode os.FileMode) error {
	info, err := os.Stat(path)

	switch {
	case err == nil:
		if !info.IsDir() {
			return errors.Wrap(ErrNotDirectory, path)
		}

		return nil
	case os.IsNotExist(err):
		return errors.Wrapf(os.MkdirAll(path, mode), "failed to create directory %s", path)
	}

	return errors.Wrapf(err, "failed to stat %s", path)
}
