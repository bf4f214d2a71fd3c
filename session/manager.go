package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/mbolis/uss/log"
)

const CookieName = "sessionid"

type ctxKey struct{}

// Manager ties sessions to requests. The cookie carries a JWT whose "sid" claim
// names the session, so a client cannot forge someone else's id.
type Manager struct {
	store Store
	auth  *jwtauth.JWTAuth
	ttl   time.Duration
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		auth:  jwtauth.New("HS256", []byte(secret), nil),
		ttl:   ttl,
	}
}

// Load returns the session named by the request cookie, or a fresh one when the
// cookie is missing, tampered with, or points to an expired session.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	id, ok := m.sessionID(r)
	if ok {
		values, err := m.store.Load(r.Context(), id)
		switch {
		case err == nil:
			return newSession(id, values), nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
		log.Debugf("session.load: %s expired", id)
	}

	s := newSession(uuid.NewString(), nil)
	s.isNew = true
	return s, nil
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}

	token, err := jwtauth.VerifyToken(m.auth, cookie.Value)
	if err != nil {
		log.Debugf("session.cookie: %s", err)
		return "", false
	}

	sid, ok := token.Get("sid")
	if !ok {
		return "", false
	}
	id, ok := sid.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Save persists a modified session and (re)issues its cookie. It must run before
// the response header is written. Unmodified sessions are left alone.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if !s.Modified() {
		return nil
	}

	err := m.store.Save(ctx, s.ID, s.values, m.ttl)
	if err != nil {
		return err
	}

	claims := map[string]interface{}{"sid": s.ID}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, m.ttl)
	_, token, err := m.auth.Encode(claims)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.modified = false
	s.isNew = false
	return nil
}

// Destroy removes the session from the store and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	err := m.store.Delete(ctx, s.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}

// Middleware loads the request's session into its context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil {
			log.Errorf("session.middleware: %s", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
