package role

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Role designates one of the protocol roles; the set is closed and
// fixed, every role has exactly one stable storage key
type Role uint8

// roles
// NOTE: never reorder or rename keys, they're stored as-is
const (
	ActivePool Role = iota + 1
	TroveManager
	Owner
	StabilityPool
)

var roleKeys = map[Role]string{
	ActivePool:    "active_pool",
	TroveManager:  "trove_manager",
	Owner:         "owner",
	StabilityPool: "stability_pool",
}

var keyRoles = func() map[string]Role {
	m := make(map[string]Role, len(roleKeys))
	for r, k := range roleKeys {
		m[k] = r
	}

	return m
}()

// AllRoles returns every catalog role in catalog order
func AllRoles() []Role {
	return []Role{ActivePool, TroveManager, Owner, StabilityPool}
}

// Key returns a canonical storage key, empty string for unknown roles
func (r Role) Key() string {
	return roleKeys[r]
}

// String returns a display label, which is the same as the storage key
func (r Role) String() string {
	if k, ok := roleKeys[r]; ok {
		return k
	}

	return "unknown role"
}

// Validate checks whether the role belongs to the catalog
func (r Role) Validate() error {
	if _, ok := roleKeys[r]; !ok {
		return errors.Wrapf(ErrUnknownRole, "role value %d", uint8(r))
	}

	return nil
}

// ParseRole returns a role by its storage key
func ParseRole(key string) (Role, error) {
	r, ok := keyRoles[strings.TrimSpace(key)]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownRole, "role key %q", key)
	}

	return r, nil
}

// MarshalJSON encodes role as its key
func (r Role) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	return json.Marshal(r.Key())
}

// UnmarshalJSON decodes role from its key
func (r *Role) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err != nil {
		return err
	}

	parsed, err := ParseRole(key)
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// Labels returns display labels of given roles, preserving order
func Labels(roles []Role) []string {
	labels := make([]string, len(roles))
	for i, r := range roles {
		labels[i] = r.String()
	}

	return labels
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary
