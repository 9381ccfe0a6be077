package store

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"time"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/natsclient"
)

// Identity cache defaults. Records change rarely relative to request volume,
// so a short TTL keeps revocation latency bounded while absorbing bursts.
const (
	defaultIdentityTTL      = 30 * time.Second
	defaultIdentityCacheCap = 4096
)

// kvAuthStore resolves identities out of the identities KV bucket
type kvAuthStore struct {
	kv     *natsclient.KVStore
	logger natsclient.Logger
	cache  *ttlCache[*entity.Identity]
}

// AuthStoreOption configures a KV-backed auth store
type AuthStoreOption func(*kvAuthStore)

// WithIdentityCacheTTL overrides the identity cache TTL. Zero disables caching.
func WithIdentityCacheTTL(ttl time.Duration) AuthStoreOption {
	return func(s *kvAuthStore) {
		if ttl <= 0 {
			s.cache = nil
			return
		}
		s.cache = newTTLCache[*entity.Identity](ttl, defaultIdentityCacheCap)
	}
}

// NewAuthStore creates an AuthStore backed by the identities KV bucket
func NewAuthStore(kv *natsclient.KVStore, logger natsclient.Logger, opts ...AuthStoreOption) AuthStore {
	s := &kvAuthStore{
		kv:     kv,
		logger: logger,
		cache:  newTTLCache[*entity.Identity](defaultIdentityTTL, defaultIdentityCacheCap),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *kvAuthStore) IdentityByNamespace(ctx context.Context, namespace string) (*entity.Identity, error) {
	key := identityKey(namespace)

	if s.cache != nil {
		if id, ok := s.cache.Get(key); ok {
			return id, nil
		}
	}

	id, err := s.fetchIdentity(ctx, key)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, id)
	}
	return id, nil
}

func (s *kvAuthStore) IdentityByAuthKey(ctx context.Context, uuid, key string) (*entity.Identity, error) {
	entry, err := s.kv.Get(ctx, authKeyIndex(uuid))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.WrapTransient(err, "store", "identity_by_auth_key", "kv lookup failed")
	}

	var id entity.Identity
	if err := json.Unmarshal(entry.Value, &id); err != nil {
		s.logger.Errorf("undecodable identity record for uuid index: %v", err)
		return nil, errors.ErrEntityNotFound
	}

	// Constant-time compare so credential probing cannot time-side-channel
	// the stored key.
	if subtle.ConstantTimeCompare([]byte(id.AuthKey.Key), []byte(key)) != 1 {
		return nil, errors.ErrEntityNotFound
	}
	return &id, nil
}

func (s *kvAuthStore) fetchIdentity(ctx context.Context, key string) (*entity.Identity, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, notFound(errors.ErrEntityNotFound)
		}
		return nil, errors.WrapTransient(err, "store", "identity_by_namespace", "kv lookup failed")
	}

	var id entity.Identity
	if err := json.Unmarshal(entry.Value, &id); err != nil {
		s.logger.Errorf("undecodable identity record at %s: %v", key, err)
		return nil, notFound(errors.ErrRecordCorrupted)
	}
	return &id, nil
}
