// Package handlers exposes the storefront services over HTTP
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"topcompras/storefront"
	"topcompras/storefront/catalog"
	"topcompras/storefront/feedback"
	"topcompras/storefront/prices"
	"topcompras/storefront/sales"
	"topcompras/waf/auth"
	"topcompras/waf/bodylimits"
	"topcompras/waf/guard"
	"topcompras/waf/respond"
	"topcompras/waf/rules"
	"topcompras/waf/sanitize"
)

const ErrInvalidJSON = "JSON inválido"

// API bundles the services behind the /api routes. Admin, Guard and Rules
// are optional.
type API struct {
	Sales    *sales.Service
	Prices   *prices.Service
	Feedback *feedback.Service
	Catalog  *catalog.Catalog
	Checkout *catalog.Checkout
	Admin    *auth.Admin
	Guard    *guard.Guard
	Rules    *rules.Manager

	now func() time.Time
}

func (a *API) timestamp() string {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	return now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// decode reads a JSON body into v. An empty body decodes as {}.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		respond.Error(w, http.StatusRequestEntityTooLarge, bodylimits.ErrTooLarge, "")
		return false
	}
	respond.Error(w, http.StatusBadRequest, ErrInvalidJSON, "")
	return false
}

// fail maps service errors to responses
func fail(w http.ResponseWriter, err error) {
	if ve, ok := storefront.IsValidation(err); ok {
		respond.Error(w, http.StatusBadRequest, ve.Message, "")
		return
	}
	switch {
	case errors.Is(err, feedback.ErrNotFound),
		errors.Is(err, catalog.ErrUnknownProduct),
		errors.Is(err, catalog.ErrUnknownVariation):
		respond.Error(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, feedback.ErrAlreadyLiked), errors.Is(err, feedback.ErrNotLiked):
		respond.Error(w, http.StatusBadRequest, err.Error(), "")
	default:
		respond.Internal(w, err)
	}
}

// inspect records a suspicion against the caller when any value carries an
// injection pattern. The values are still sanitized downstream.
func (a *API) inspect(r *http.Request, values ...string) {
	if a.Guard == nil || !sanitize.AnyMalicious(values...) {
		return
	}
	a.Guard.RecordSuspicious(guard.IdentityFromRequest(r), guard.SuspicionInput)
}

// requireAdmin writes a 401 and returns false when r lacks an admin token
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if a.Admin == nil || a.Admin.Authorized(r) {
		return true
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="topcompras"`)
	respond.Error(w, http.StatusUnauthorized, auth.ErrUnauthorized, auth.MsgInvalidSession)
	return false
}

func preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.WriteHeader(http.StatusOK)
	return true
}
