package account

import (
	"context"
	"net/http"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/go-chi/chi"
)

// RolesResult lists roles held by an account
type RolesResult struct {
	Account role.Account `json:"account"`
	Roles   []role.Role  `json:"roles"`
}

// Roles returns every role held by an account
func Roles(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (result interface{}, code int, err error) {
	account := role.Account(chi.URLParam(r, "account"))
	if err = account.Validate(); err != nil {
		return nil, http.StatusBadRequest, err
	}

	roles, err := c.Registry().RolesOf(ctx, account)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return RolesResult{Account: account, Roles: roles}, http.StatusOK, nil
}
