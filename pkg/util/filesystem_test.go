package util_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/agubarev/rolegate/pkg/util"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	a := assert.New(t)

	root := filepath.Join(os.TempDir(), "rolegate-fs-"+util.NewULID().String())
	defer os.RemoveAll(root)

	nested := filepath.Join(root, "a", "b")
	a.NoError(util.CreateDirectoryIfNotExists(nested, 0700))

	info, err := os.Stat(nested)
	a.NoError(err)
	a.True(info.IsDir())

	// existing directory is fine
	a.NoError(util.CreateDirectoryIfNotExists(nested, 0700))

	// regular file in the way
	file := filepath.Join(root, "file")
	a.NoError(ioutil.WriteFile(file, []byte("x"), 0600))

	err = util.CreateDirectoryIfNotExists(file, 0700)
	a.Error(err)
	a.Equal(util.ErrNotDirectory, errors.Cause(err))
}
