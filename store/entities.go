package store

import (
	"context"
	"encoding/json"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/natsclient"
)

// kvEntityStore retrieves packages and actions from the entities KV bucket
type kvEntityStore struct {
	kv     *natsclient.KVStore
	logger natsclient.Logger
}

// NewEntityStore creates an EntityStore backed by the entities KV bucket
func NewEntityStore(kv *natsclient.KVStore, logger natsclient.Logger) EntityStore {
	return &kvEntityStore{kv: kv, logger: logger}
}

func (s *kvEntityStore) GetPackage(ctx context.Context, namespace, name string) (*entity.Package, error) {
	entry, err := s.kv.Get(ctx, packageKey(namespace, name))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, notFound(errors.ErrEntityNotFound)
		}
		return nil, errors.WrapTransient(err, "store", "get_package", "kv lookup failed")
	}

	var pkg entity.Package
	if err := json.Unmarshal(entry.Value, &pkg); err != nil {
		s.logger.Errorf("undecodable package record %s/%s: %v", namespace, name, err)
		return nil, notFound(errors.ErrRecordCorrupted)
	}

	// Bindings are references into another namespace. Serving them through
	// the web path would leak entities the caller has no route to, so they
	// are indistinguishable from absent packages.
	if pkg.IsBinding() {
		return nil, notFound(errors.ErrEntityNotFound)
	}
	return &pkg, nil
}

func (s *kvEntityStore) GetAction(ctx context.Context, namespace, actionPath string) (*entity.Action, error) {
	entry, err := s.kv.Get(ctx, actionKey(namespace, actionPath))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, notFound(errors.ErrEntityNotFound)
		}
		return nil, errors.WrapTransient(err, "store", "get_action", "kv lookup failed")
	}

	var act entity.Action
	if err := json.Unmarshal(entry.Value, &act); err != nil {
		s.logger.Errorf("undecodable action record %s/%s: %v", namespace, actionPath, err)
		return nil, notFound(errors.ErrRecordCorrupted)
	}
	return &act, nil
}
