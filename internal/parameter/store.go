// Package parameter translates host-facing key/value pairs into typed
// parameters through literal mapping tables.
package parameter

import (
	"github.com/patrickmn/go-cache"
)

// Store keeps typed parameter values by name. Values never expire.
type Store struct {
	cache *cache.Cache
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, 0)}
}

// Set stores a value under name
func (s *Store) Set(name string, value any) {
	s.cache.Set(name, value, cache.NoExpiration)
}

// Get returns the value stored under name
func (s *Store) Get(name string) (any, bool) {
	return s.cache.Get(name)
}

// Len returns the number of stored values
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Flush drops every value
func (s *Store) Flush() {
	s.cache.Flush()
}
