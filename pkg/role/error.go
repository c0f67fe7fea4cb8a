package role

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// errors
var (
	ErrUnknownRole        = errors.New("unknown role")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrNilStore           = errors.New("role store is nil")
	ErrNilCodec           = errors.New("role codec is nil")
	ErrEmptyNamespace     = errors.New("empty storage namespace")
	ErrNamespaceCollision = errors.New("primary and index namespaces must differ")
)

// LabelSeparator joins role labels of a failed multi-role assertion
const LabelSeparator = " | "

// UnauthorizedForRoleError is returned by assertions when the caller
// holds none of the required roles; this is an expected outcome
// and not a fault
type UnauthorizedForRoleError struct {
	Label string `json:"label"`
}

func (e *UnauthorizedForRoleError) Error() string {
	return fmt.Sprintf("caller is not %s", e.Label)
}

// IsUnauthorized checks whether an error is an authorization failure
func IsUnauthorized(err error) bool {
	var target *UnauthorizedForRoleError
	return errors.As(err, &target)
}

// StorageError wraps any failure of the underlying storage or codec
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("role storage failure during %s: %s", e.Op, e.Err)
}

// Cause is used by github.com/pkg/errors
func (e *StorageError) Cause() error { return e.Err }

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError checks whether an error came from the storage layer
func IsStorageError(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}

	// already wrapped, keeping the innermost operation
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}

	return &StorageError{Op: op, Err: err}
}

// Inconsistency describes a single mismatch between primary
// and secondary indexes
type Inconsistency struct {
	Role    string  `json:"role"`
	Account Account `json:"account"`
	Reason  string  `json:"reason"`
}

// InconsistencyError is returned by Verify when indexes diverge
type InconsistencyError struct {
	Items []Inconsistency `json:"items"`
}

func (e *InconsistencyError) Error() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = fmt.Sprintf("%s/%s: %s", item.Role, item.Account, item.Reason)
	}

	return fmt.Sprintf("role indexes are inconsistent: %s", strings.Join(parts, "; "))
}
