package role

import (
	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
)

// MaxAccountLength is the longest account identifier, in bytes, that every
// storage backend keeps intact as an index key
const MaxAccountLength = 255

// Account is an opaque identifier of an already authenticated principal,
// equality is the only operation the registry needs from it
type Account string

// Validate checks whether the account identifier is usable as a grantee
func (a Account) Validate() error {
	s := string(a)

	if s == "" {
		return errors.Wrap(ErrInvalidAccount, "empty account")
	}

	if len(s) > MaxAccountLength {
		return errors.Wrapf(ErrInvalidAccount, "account is longer than %d bytes", MaxAccountLength)
	}

	if !govalidator.IsPrintableASCII(s) || govalidator.HasWhitespace(s) {
		return errors.Wrapf(ErrInvalidAccount, "account %q contains forbidden characters", s)
	}

	return nil
}

func (a Account) String() string {
	return string(a)
}

// Grant represents a role held by an account
type Grant struct {
	Role    Role    `json:"role"`
	Grantee Account `json:"grantee"`
}
