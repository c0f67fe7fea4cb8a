package roles

import (
	"context"
	"net/http"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/go-chi/chi"
	"github.com/pkg/errors"
)

// ErrNotGranted is returned when a role has no grantee
var ErrNotGranted = errors.New("role is not granted")

// CheckResult is a result of the role check
type CheckResult struct {
	Role       role.Role    `json:"role"`
	Account    role.Account `json:"account"`
	Authorized bool         `json:"authorized"`
}

// List returns every current grant
func List(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (result interface{}, code int, err error) {
	grants, err := c.Registry().Grants(ctx)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return grants, http.StatusOK, nil
}

// Get returns the grantee of a role
func Get(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (result interface{}, code int, err error) {
	rl, err := role.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	grantee, ok, err := c.Registry().Get(ctx, rl)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	if !ok {
		return nil, http.StatusNotFound, errors.Wrapf(ErrNotGranted, "%s", rl)
	}

	return role.Grant{Role: rl, Grantee: grantee}, http.StatusOK, nil
}

// Check tells whether an account currently holds the role
func Check(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (result interface{}, code int, err error) {
	rl, err := role.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	account := role.Account(chi.URLParam(r, "account"))
	if err = account.Validate(); err != nil {
		return nil, http.StatusBadRequest, err
	}

	has, err := c.Registry().HasRole(ctx, rl, account)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return CheckResult{Role: rl, Account: account, Authorized: has}, http.StatusOK, nil
}
