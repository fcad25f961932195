package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Registrar is the gateway's view of the in-process connection registry.
// It binds a user identity to exactly one live session handle.
type Registrar interface {
	Add(userID string, conn Connector) (evicted Connector)
	Remove(userID string)
	Release(userID string, connID uuid.UUID) bool
	HandleOf(userID string) (Connector, bool)
	UserOf(connID uuid.UUID) (string, bool)
	Has(userID string) bool
	Count() int
	Clear()
}

// Interface guard
var _ Registrar = (*Registry)(nil)

// Registry keeps two inverse maps under one mutex. Every mutation updates
// both sides atomically, so a reader observing HandleOf(u)=h also observes
// UserOf(h.id)=u until the next mutation for either key.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Connector
	byConn map[uuid.UUID]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Connector),
		byConn: make(map[uuid.UUID]string),
	}
}

// Add installs the binding for userID. A prior binding is evicted from both
// maps and returned; the registry never closes the evicted transport, that
// is the gateway's policy.
func (r *Registry) Add(userID string, conn Connector) Connector {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := r.byUser[userID]
	if evicted != nil {
		delete(r.byConn, evicted.GetID())
	}

	r.byUser[userID] = conn
	r.byConn[conn.GetID()] = userID

	return evicted
}

// Remove drops the binding for userID. Removing an unknown user is a no-op.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.byUser[userID]; ok {
		delete(r.byConn, conn.GetID())
		delete(r.byUser, userID)
	}
}

// Release removes the binding only if it still points at connID. A session
// tearing down after being replaced by a reconnect must not unbind its
// successor; both racing paths are no-ops on the other's completed work.
func (r *Registry) Release(userID string, connID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byUser[userID]
	if !ok || conn.GetID() != connID {
		return false
	}

	delete(r.byConn, connID)
	delete(r.byUser, userID)
	return true
}

func (r *Registry) HandleOf(userID string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUser[userID]
	return conn, ok
}

func (r *Registry) UserOf(connID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byConn[connID]
	return userID, ok
}

func (r *Registry) Has(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUser[userID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}

// Clear empties both maps without touching the transports.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser = make(map[string]Connector)
	r.byConn = make(map[uuid.UUID]string)
}
