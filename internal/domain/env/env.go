// Package env is the runtime's key-value store, used twice over: once as
// the boot-time config store loaded from the config file, and once as the
// in-memory "names" store service_name/service_query use to bind a
// symbolic name to a handle. The original backs both with the same
// env_create-based store and Lua globals because it embeds a Lua VM for
// scripting; scripting is out of scope here, so this keeps the
// spinlock-guarded-store shape of env.c and drops Lua for a plain map,
// still giving both instances the same string and int accessors the
// original's env_setstr/env_getstr/env_setint/env_getint provide.
package env

import (
	"strconv"

	"github.com/webitel/actorhost/internal/domain/syncutil"
)

// Store is a spinlock-guarded string key-value store.
type Store struct {
	lock syncutil.Spinlock
	vals map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{vals: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	v, ok := s.vals[key]
	return v, ok
}

// Set stores key=value, overwriting any previous value.
func (s *Store) Set(key, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.vals[key] = value
}

// SetInt stores an integer value under key, the Go analogue of
// env_setint.
func (s *Store) SetInt(key string, v int) {
	s.Set(key, strconv.Itoa(v))
}

// GetInt returns the integer value for key and whether it was present and
// well-formed, the Go analogue of env_getint.
func (s *Store) GetInt(key string) (int, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Require returns the value for key, or an error naming it if absent. Boot
// validation of the required keys (thread, log, main) is done by
// internal/config, not through this method.
func (s *Store) Require(key string) (string, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}
	return "", &MissingKeyError{Key: key}
}

// MissingKeyError reports a required config key that was never set.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return "env: missing required key " + e.Key
}

// Snapshot copies the whole store, for the admin inspector.
func (s *Store) Snapshot() map[string]string {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make(map[string]string, len(s.vals))
	for k, v := range s.vals {
		out[k] = v
	}
	return out
}
