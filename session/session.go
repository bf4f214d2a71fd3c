// Package session keeps small per-client key/value state between requests.
// The client only holds a signed session id; values live in a Store.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cast"
)

var ErrNotFound = errors.New("session not found")

// Store persists session values by id. Load returns ErrNotFound for unknown or
// expired sessions.
type Store interface {
	Load(ctx context.Context, id string) (map[string]any, error)
	Save(ctx context.Context, id string, values map[string]any, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type Session struct {
	ID       string
	values   map[string]any
	isNew    bool
	modified bool
}

func newSession(id string, values map[string]any) *Session {
	if values == nil {
		values = map[string]any{}
	}
	return &Session{ID: id, values: values}
}

func (s *Session) IsNew() bool {
	return s.isNew
}

func (s *Session) Modified() bool {
	return s.modified
}

func (s *Session) Set(key string, value any) {
	s.values[key] = value
	s.modified = true
}

// GetInt reads key as an int. Stores hand numbers back in whatever type their
// encoding produced, so the value is converted rather than asserted.
func (s *Session) GetInt(key string) (int, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *Session) SetInt(key string, value int) {
	s.Set(key, value)
}
