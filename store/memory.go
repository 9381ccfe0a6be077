package store

import (
	"context"
	"sync"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
)

// MemoryStore is an in-memory AuthStore and EntityStore for tests and local
// development. It applies the same 404 collapse as the KV-backed stores.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[string]*entity.Identity // keyed by namespace
	byUUID     map[string]*entity.Identity
	packages   map[string]*entity.Package // keyed by namespace+"/"+name
	actions    map[string]*entity.Action  // keyed by namespace+"/"+actionPath
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]*entity.Identity),
		byUUID:     make(map[string]*entity.Identity),
		packages:   make(map[string]*entity.Package),
		actions:    make(map[string]*entity.Action),
	}
}

// PutIdentity registers an identity under its namespace and auth UUID
func (m *MemoryStore) PutIdentity(id *entity.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[id.Namespace] = id
	if id.AuthKey.UUID != "" {
		m.byUUID[id.AuthKey.UUID] = id
	}
}

// PutPackage registers a package under namespace/name
func (m *MemoryStore) PutPackage(namespace string, pkg *entity.Package) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[namespace+"/"+pkg.Name] = pkg
}

// PutAction registers an action under its namespace-relative path
func (m *MemoryStore) PutAction(namespace, actionPath string, act *entity.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[namespace+"/"+actionPath] = act
}

func (m *MemoryStore) IdentityByNamespace(_ context.Context, namespace string) (*entity.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identities[namespace]
	if !ok {
		return nil, notFound(errors.ErrEntityNotFound)
	}
	return id, nil
}

func (m *MemoryStore) IdentityByAuthKey(_ context.Context, uuid, key string) (*entity.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUUID[uuid]
	if !ok || id.AuthKey.Key != key {
		return nil, errors.ErrEntityNotFound
	}
	return id, nil
}

func (m *MemoryStore) GetPackage(_ context.Context, namespace, name string) (*entity.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pkg, ok := m.packages[namespace+"/"+name]
	if !ok || pkg.IsBinding() {
		return nil, notFound(errors.ErrEntityNotFound)
	}
	return pkg, nil
}

func (m *MemoryStore) GetAction(_ context.Context, namespace, actionPath string) (*entity.Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	act, ok := m.actions[namespace+"/"+actionPath]
	if !ok {
		return nil, notFound(errors.ErrEntityNotFound)
	}
	return act, nil
}
