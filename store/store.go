package store

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
)

// Bucket names for the gateway's KV-backed stores
const (
	IdentityBucket = "identities"
	EntityBucket   = "entities"
)

// AuthStore resolves namespace owners and authenticated callers
type AuthStore interface {
	// IdentityByNamespace resolves a namespace segment to its owner identity.
	// Missing or undecodable records collapse to a 404 rejection.
	IdentityByNamespace(ctx context.Context, namespace string) (*entity.Identity, error)

	// IdentityByAuthKey resolves Basic-auth credentials to an identity.
	// Unknown or mismatched credentials report ErrEntityNotFound; the caller
	// decides whether that is a 401 or anonymous fallback.
	IdentityByAuthKey(ctx context.Context, uuid, key string) (*entity.Identity, error)
}

// EntityStore retrieves package and action records
type EntityStore interface {
	// GetPackage retrieves a package record. Missing, undecodable, or
	// binding packages collapse to a 404 rejection.
	GetPackage(ctx context.Context, namespace, name string) (*entity.Package, error)

	// GetAction retrieves an action record by its namespace-relative path
	// ("act" or "pkg/act"). Missing or undecodable records collapse to a
	// 404 rejection.
	GetAction(ctx context.Context, namespace, actionPath string) (*entity.Action, error)
}

// notFound is the single rejection shape lookups surface for missing,
// undecodable, and binding records, so existence is never leaked.
func notFound(cause error) error {
	return errors.RejectWith(http.StatusNotFound, "The requested resource does not exist.", cause)
}

// kv key segments use url-safe base64: entity names may contain spaces and
// at-signs, which the KV key alphabet excludes.
func encodeSegment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func identityKey(namespace string) string {
	return "ns." + encodeSegment(namespace)
}

func authKeyIndex(uuid string) string {
	return "uuid." + encodeSegment(uuid)
}

func packageKey(namespace, name string) string {
	return "pkg." + encodeSegment(namespace) + "." + encodeSegment(name)
}

func actionKey(namespace, actionPath string) string {
	return "act." + encodeSegment(namespace) + "." + encodeSegment(actionPath)
}
