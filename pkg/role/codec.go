package role

import (
	"sort"

	"github.com/pkg/errors"
)

// Codec converts registry values to bytes and back
type Codec interface {
	MarshalAccount(a Account) ([]byte, error)
	UnmarshalAccount(data []byte) (Account, error)
	MarshalRoles(roles []Role) ([]byte, error)
	UnmarshalRoles(data []byte) ([]Role, error)
}

// JSONCodec stores accounts as JSON strings and role sets
// as sorted JSON arrays of role keys
type JSONCodec struct{}

// NewJSONCodec returns the default codec
func NewJSONCodec() Codec {
	return JSONCodec{}
}

func (JSONCodec) MarshalAccount(a Account) ([]byte, error) {
	return json.Marshal(string(a))
}

func (JSONCodec) UnmarshalAccount(data []byte) (Account, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal account")
	}

	return Account(s), nil
}

func (JSONCodec) MarshalRoles(roles []Role) ([]byte, error) {
	keys := make([]string, 0, len(roles))
	for _, r := range roles {
		if err := r.Validate(); err != nil {
			return nil, err
		}

		keys = append(keys, r.Key())
	}

	sort.Strings(keys)

	return json.Marshal(keys)
}

func (JSONCodec) UnmarshalRoles(data []byte) ([]Role, error) {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal role set")
	}

	roles := make([]Role, 0, len(keys))
	for _, k := range keys {
		r, err := ParseRole(k)
		if err != nil {
			return nil, errors.Wrap(err, "corrupted role set")
		}

		roles = append(roles, r)
	}

	return roles, nil
}
