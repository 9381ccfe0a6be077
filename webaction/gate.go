package webaction

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/store"
)

func rejectUnauthorized() error {
	return errors.Reject(http.StatusUnauthorized, "The supplied authentication is not authorized to access this resource.")
}

// authenticate resolves Basic-auth credentials when present. Requests
// without credentials proceed anonymously; credentials that do not match an
// identity are rejected outright rather than downgraded to anonymous.
func authenticate(ctx context.Context, r *http.Request, auth store.AuthStore) (*entity.Identity, error) {
	uuid, key, ok := r.BasicAuth()
	if !ok {
		return nil, nil
	}

	id, err := auth.IdentityByAuthKey(ctx, uuid, key)
	if err != nil {
		if stderrors.Is(err, errors.ErrEntityNotFound) {
			return nil, rejectUnauthorized()
		}
		return nil, err
	}
	return id, nil
}

// checkExportGate decides whether the caller may reach the action through
// the web route. Unexported actions are indistinguishable from absent ones.
func checkExportGate(action *entity.Action, caller *entity.Identity, secretHeader string) error {
	if !action.WebExported() {
		return rejectNotFound()
	}

	raw, present := action.RequireAuth()
	if !present {
		return nil
	}

	switch {
	case bytes.Equal(bytes.TrimSpace(raw), []byte("false")):
		return nil
	case bytes.Equal(bytes.TrimSpace(raw), []byte("true")):
		if caller != nil {
			return nil
		}
		return rejectUnauthorized()
	default:
		// The annotation is a secret the request must echo in
		// X-Require-Whisk-Auth. A match passes even anonymously.
		if subtle.ConstantTimeCompare([]byte(annotationSecret(raw)), []byte(secretHeader)) == 1 && secretHeader != "" {
			return nil
		}
		return rejectUnauthorized()
	}
}

// annotationSecret stringifies the require-whisk-auth annotation value:
// JSON strings unquote, numbers keep their literal form
func annotationSecret(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
