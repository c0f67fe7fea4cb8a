package roles

import (
	"context"
	"net/http"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/pkg/errors"
)

// VerifyResult is a result of the index consistency check
type VerifyResult struct {
	Consistent bool                 `json:"consistent"`
	Items      []role.Inconsistency `json:"items"`
}

// Verify cross-checks registry indexes
func Verify(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (result interface{}, code int, err error) {
	err = c.Registry().Verify(ctx)
	if err == nil {
		return VerifyResult{Consistent: true, Items: []role.Inconsistency{}}, http.StatusOK, nil
	}

	var ie *role.InconsistencyError
	if errors.As(err, &ie) {
		return VerifyResult{Consistent: false, Items: ie.Items}, http.StatusOK, nil
	}

	return nil, http.StatusInternalServerError, err
}
