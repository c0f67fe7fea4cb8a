package util

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyMu sync.Mutex
)

// NewULID returns a new monotonic ulid.ULID
func NewULID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}
