package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/internal/server"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/agubarev/rolegate/pkg/util"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type envelope struct {
	RequestID string              `json:"request_id"`
	Result    jsoniter.RawMessage `json:"result"`
}

func serverForTesting(t *testing.T) (*core.Core, *httptest.Server) {
	a := assert.New(t)

	c, err := core.CoreForTesting()
	a.NoError(err)

	ctx := context.Background()
	a.NoError(c.Registry().Set(ctx, role.Owner, "0xowner"))
	a.NoError(c.Registry().Set(ctx, role.ActivePool, "0xpool"))
	a.NoError(c.Registry().Set(ctx, role.StabilityPool, "0xpool"))

	return c, httptest.NewServer(server.Router(ctx, c))
}

func get(t *testing.T, url string) (int, envelope, util.HTTPError) {
	a := assert.New(t)

	resp, err := http.Get(url)
	a.NoError(err)
	defer resp.Body.Close()

	var env envelope
	var herr util.HTTPError

	if resp.StatusCode == http.StatusOK {
		a.NoError(json.NewDecoder(resp.Body).Decode(&env))
		a.NotEmpty(env.RequestID)
	} else {
		a.NoError(json.NewDecoder(resp.Body).Decode(&herr))
	}

	return resp.StatusCode, env, herr
}

func TestListRoles(t *testing.T) {
	a := assert.New(t)

	c, ts := serverForTesting(t)
	defer c.Close()
	defer ts.Close()

	code, env, _ := get(t, ts.URL+"/api/v1/roles")
	a.Equal(http.StatusOK, code)

	var grants []role.Grant
	a.NoError(json.Unmarshal(env.Result, &grants))
	a.Equal([]role.Grant{
		{Role: role.ActivePool, Grantee: "0xpool"},
		{Role: role.Owner, Grantee: "0xowner"},
		{Role: role.StabilityPool, Grantee: "0xpool"},
	}, grants)
}

func TestGetRole(t *testing.T) {
	a := assert.New(t)

	c, ts := serverForTesting(t)
	defer c.Close()
	defer ts.Close()

	code, env, _ := get(t, ts.URL+"/api/v1/roles/owner")
	a.Equal(http.StatusOK, code)

	var grant role.Grant
	a.NoError(json.Unmarshal(env.Result, &grant))
	a.Equal(role.Owner, grant.Role)
	a.Equal(role.Account("0xowner"), grant.Grantee)

	// not granted
	code, _, herr := get(t, ts.URL+"/api/v1/roles/trove_manager")
	a.Equal(http.StatusNotFound, code)
	a.Equal("get_role", herr.Key)
	a.Equal(http.StatusNotFound, herr.Code)

	// not in the catalog
	code, _, herr = get(t, ts.URL+"/api/v1/roles/admin")
	a.Equal(http.StatusBadRequest, code)
	a.Equal(http.StatusBadRequest, herr.Code)
}

func TestCheckRole(t *testing.T) {
	a := assert.New(t)

	c, ts := serverForTesting(t)
	defer c.Close()
	defer ts.Close()

	check := func(path string) bool {
		code, env, _ := get(t, ts.URL+path)
		a.Equal(http.StatusOK, code)

		var res struct {
			Authorized bool `json:"authorized"`
		}

		a.NoError(json.Unmarshal(env.Result, &res))

		return res.Authorized
	}

	a.True(check("/api/v1/roles/owner/check/0xowner"))
	a.False(check("/api/v1/roles/owner/check/0xpool"))
	a.True(check("/api/v1/roles/stability_pool/check/0xpool"))
	a.False(check("/api/v1/roles/trove_manager/check/0xpool"))

	code, _, _ := get(t, ts.URL+"/api/v1/roles/minter/check/0xpool")
	a.Equal(http.StatusBadRequest, code)
}

func TestAccountRoles(t *testing.T) {
	a := assert.New(t)

	c, ts := serverForTesting(t)
	defer c.Close()
	defer ts.Close()

	code, env, _ := get(t, ts.URL+"/api/v1/accounts/0xpool/roles")
	a.Equal(http.StatusOK, code)

	var res struct {
		Account role.Account `json:"account"`
		Roles   []role.Role  `json:"roles"`
	}

	a.NoError(json.Unmarshal(env.Result, &res))
	a.Equal(role.Account("0xpool"), res.Account)
	a.Equal([]role.Role{role.ActivePool, role.StabilityPool}, res.Roles)

	// unknown account holds nothing
	code, env, _ = get(t, ts.URL+"/api/v1/accounts/0xnobody/roles")
	a.Equal(http.StatusOK, code)
	a.NoError(json.Unmarshal(env.Result, &res))
	a.Empty(res.Roles)
}

func TestVerifyAndNotFound(t *testing.T) {
	a := assert.New(t)

	c, ts := serverForTesting(t)
	defer c.Close()
	defer ts.Close()

	code, env, _ := get(t, ts.URL+"/api/v1/verify")
	a.Equal(http.StatusOK, code)

	var res struct {
		Consistent bool `json:"consistent"`
	}

	a.NoError(json.Unmarshal(env.Result, &res))
	a.True(res.Consistent)

	code, _, herr := get(t, ts.URL+"/api/v1/nothing")
	a.Equal(http.StatusNotFound, code)
	a.Equal("not_found", herr.Key)
}
