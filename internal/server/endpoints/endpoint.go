package endpoints

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/agubarev/rolegate/pkg/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// context keys
type contextKey string

// CKRequestID is a context key of the request ID
const CKRequestID = contextKey("request_id")

// Endpoint is a named handler bound to the core
type Endpoint struct {
	ctx     context.Context
	core    *core.Core
	name    string
	handler Handler
}

// Handler represents a custom handler
type Handler func(ctx context.Context, c *core.Core, w http.ResponseWriter, r *http.Request) (result interface{}, code int, err error)

// Response is the common response envelope
type Response struct {
	RequestID     uuid.UUID     `json:"request_id"`
	Result        interface{}   `json:"result"`
	ExecutionTime time.Duration `json:"exec_time"`
}

func NewEndpoint(ctx context.Context, c *core.Core, h Handler, name string) (e Endpoint) {
	if c == nil {
		panic(core.ErrNilCore)
	}

	// basic validation
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		panic(errors.New("empty endpoint name"))
	}

	e = Endpoint{
		ctx:     ctx,
		core:    c,
		name:    name,
		handler: h,
	}

	return e
}

func (e Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// refusing new requests once the server is shutting down
	if err := e.ctx.Err(); err != nil {
		util.WriteResponseErrorTo(w, e.name, err, http.StatusServiceUnavailable)
		return
	}

	// generating request ID
	requestID := uuid.New()

	// injecting request ID into the context
	ctx := context.WithValue(r.Context(), CKRequestID, requestID)

	w.Header().Set("X-Request-ID", requestID.String())

	//---------------------------------------------------------------------------
	// processing request
	//---------------------------------------------------------------------------
	start := time.Now()

	// executing handler
	result, code, err := e.handler(ctx, e.core, w, r.WithContext(ctx))
	if err != nil {
		if code < http.StatusBadRequest {
			code = StatusCode(err)
		}

		if code >= http.StatusInternalServerError {
			e.core.Logger().Warn(
				"request failed",
				zap.String("endpoint", e.name),
				zap.String("request_id", requestID.String()),
				zap.Error(err),
			)
		}

		util.WriteResponseErrorTo(w, e.name, err, code)

		return
	}

	util.WriteJSONTo(w, code, Response{
		RequestID:     requestID,
		Result:        result,
		ExecutionTime: time.Since(start),
	})
}

// StatusCode maps registry errors to HTTP status codes
func StatusCode(err error) int {
	switch errors.Cause(err) {
	case role.ErrUnknownRole, role.ErrInvalidAccount:
		return http.StatusBadRequest
	}

	if role.IsUnauthorized(err) {
		return http.StatusForbidden
	}

	return http.StatusInternalServerError
}
