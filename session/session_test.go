package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()

	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionGetInt(t *testing.T) {
	s := newSession("id", map[string]any{
		"int":     7,
		"float":   float64(8),
		"int8":    int8(9),
		"string":  "10",
		"garbage": []int{1},
	})

	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"int", 7, true},
		{"float", 8, true},
		{"int8", 9, true},
		{"string", 10, true},
		{"garbage", 0, false},
		{"missing", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, ok := s.GetInt(tc.key)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.False(t, s.Modified())

	s.SetInt("int", 1)
	assert.True(t, s.Modified())
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "abc", map[string]any{"ANONYM_ID": 3, "name": "x"}, time.Minute))

	values, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	s := newSession("abc", values)
	id, ok := s.GetInt("ANONYM_ID")
	assert.True(t, ok)
	assert.Equal(t, 3, id)
	assert.Equal(t, "x", values["name"])

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, newMemoryStore(t))
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	store, err := NewRedisStore(context.Background(), url)
	require.NoError(t, err)
	defer store.Close()

	testStore(t, store)
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager(newMemoryStore(t), "session-secret", time.Hour)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		require.True(t, ok)

		n, _ := s.GetInt("visits")
		s.SetInt("visits", n+1)
		require.NoError(t, m.Save(r.Context(), w, s))

		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	s, err := m.Load(req)
	require.NoError(t, err)
	assert.False(t, s.IsNew())
	visits, _ := s.GetInt("visits")
	assert.Equal(t, 1, visits)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	s, err = m.Load(req)
	require.NoError(t, err)
	visits, _ = s.GetInt("visits")
	assert.Equal(t, 2, visits)
}

func TestManagerRejectsForgedCookie(t *testing.T) {
	store := newMemoryStore(t)
	require.NoError(t, store.Save(context.Background(), "victim", map[string]any{"ANONYM_ID": 1}, time.Hour))

	m := NewManager(store, "session-secret", time.Hour)
	other := NewManager(store, "another-secret", time.Hour)

	forged := other.signedCookie(t, "victim")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(forged)
	s, err := m.Load(req)
	require.NoError(t, err)
	assert.True(t, s.IsNew())
	assert.NotEqual(t, "victim", s.ID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "victim"})
	s, err = m.Load(req)
	require.NoError(t, err)
	assert.True(t, s.IsNew())
}

func TestManagerSkipsUnmodified(t *testing.T) {
	m := NewManager(newMemoryStore(t), "session-secret", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s, err := m.Load(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(req.Context(), rec, s))
	assert.Empty(t, rec.Result().Cookies())
}

func (m *Manager) signedCookie(t *testing.T, id string) *http.Cookie {
	t.Helper()

	s := newSession(id, nil)
	s.modified = true
	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(context.Background(), rec, s))
	return rec.Result().Cookies()[0]
}
