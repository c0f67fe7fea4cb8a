package role_test

import (
	"testing"

	"github.com/agubarev/rolegate/pkg/role"
	"github.com/stretchr/testify/assert"
)

func TestJSONCodecAccount(t *testing.T) {
	a := assert.New(t)

	c := role.NewJSONCodec()

	data, err := c.MarshalAccount("alice")
	a.NoError(err)
	a.Equal(`"alice"`, string(data))

	acc, err := c.UnmarshalAccount(data)
	a.NoError(err)
	a.Equal(role.Account("alice"), acc)

	_, err = c.UnmarshalAccount([]byte("{not json"))
	a.Error(err)
}

func TestJSONCodecRoles(t *testing.T) {
	a := assert.New(t)

	c := role.NewJSONCodec()

	data, err := c.MarshalRoles([]role.Role{role.StabilityPool, role.ActivePool, role.Owner})
	a.NoError(err)

	// stored sorted by key, independent of insertion order
	a.Equal(`["active_pool","owner","stability_pool"]`, string(data))

	roles, err := c.UnmarshalRoles(data)
	a.NoError(err)
	a.Equal([]role.Role{role.ActivePool, role.Owner, role.StabilityPool}, roles)

	_, err = c.MarshalRoles([]role.Role{role.Role(77)})
	a.Error(err)

	_, err = c.UnmarshalRoles([]byte(`["owner","janitor"]`))
	a.Error(err)
}
