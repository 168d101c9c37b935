// Package storage defines the key/value persistence port shared by the cart,
// the checkout session and the order ledger.
//
// Values are opaque byte slices; each domain package owns the encoding of its
// own records. Implementations live in sub-packages (memory, file, sqlite,
// postgres, redis).
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("record not found")

// Store is a minimal key/value persistence port.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by stores backed by a remote or embedded database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s when it supports health probing and returns nil otherwise.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// PersistenceError describes a failed read or write against a Store.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Namespaced returns a Store that prefixes every key with ns and a colon.
// An empty ns returns s unchanged.
func Namespaced(s Store, ns string) Store {
	ns = strings.TrimSuffix(ns, ":")
	if ns == "" {
		return s
	}
	return &namespaced{store: s, prefix: ns + ":"}
}

type namespaced struct {
	store  Store
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.store.Remove(ctx, n.prefix+key)
}

func (n *namespaced) Ping(ctx context.Context) error {
	return Ping(ctx, n.store)
}
