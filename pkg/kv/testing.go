package kv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agubarev/rolegate/pkg/util"
)

// BoltStoreForTesting opens a bbolt store within a random temporary file,
// returned cleanup closes the store and removes its file
func BoltStoreForTesting() (s *BoltStore, cleanup func(), err error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("rolegate-testdb-%s.bolt", util.NewULID()))

	s, err = OpenBoltStore(path)
	if err != nil {
		return nil, nil, err
	}

	cleanup = func() {
		s.Close()
		os.Remove(path)
	}

	return s, cleanup, nil
}

// BadgerStoreForTesting opens a badger store within a random temporary
// directory, returned cleanup closes the store and removes its directory
func BadgerStoreForTesting() (s *BadgerStore, cleanup func(), err error) {
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("rolegate-testdb-%s.dat", util.NewULID()))

	if err = util.CreateDirectoryIfNotExists(dir, 0700); err != nil {
		return nil, nil, err
	}

	s, err = OpenBadgerStore(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}

	cleanup = func() {
		s.Close()
		os.RemoveAll(dir)
	}

	return s, cleanup, nil
}
