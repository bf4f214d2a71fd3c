package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/log"
	"github.com/samber/lo"
)

// Authorize requires a valid bearer token.
func Authorize(secret string) func(http.Handler) http.Handler {
	return oauth.Authorize(secret, nil)
}

// Admin requires a valid bearer token carrying the 'admin' role.
func Admin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "middlewares.admin")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// OptionalAuth lets requests without an Authorization header through as
// anonymous; a header that is present must hold a valid token.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(secret, nil)
	return func(next http.Handler) http.Handler {
		authorized := authorize(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authorized.ServeHTTP(w, r)
		})
	}
}

func Claims(r *http.Request) map[string]string {
	claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	return claims
}

func HasRole(r *http.Request, role string) bool {
	rolesClaim, ok := Claims(r)["roles"]
	if !ok {
		return false
	}
	return lo.Contains(strings.Split(rolesClaim, ","), role)
}

func IsAdmin(r *http.Request) bool {
	return HasRole(r, httpx.RoleAdmin)
}

// UserID returns the authenticated user's id, or false for anonymous requests.
func UserID(r *http.Request) (int, bool) {
	claim, ok := Claims(r)["user_id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(claim)
	if err != nil {
		return 0, false
	}
	return id, true
}

// CookieAuth lets browsers authenticate safe requests with cookies: a valid
// access_token cookie is promoted to a bearer header, otherwise a refresh_token
// cookie is traded for a new token pair first. Without either the request goes on
// as anonymous. Unsafe methods must carry the Authorization header themselves.
func CookieAuth(secret string, bearerServer *oauth.BearerServer) func(http.Handler) http.Handler {
	accepted := tokenChecker(secret)
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") != "" || !safeMethod(r.Method) {
				h.ServeHTTP(w, r)
				return
			}

			if token, err := r.Cookie("access_token"); err == nil && token.Value != "" {
				if accepted(r, token.Value) {
					r.Header.Set("authorization", "Bearer "+token.Value)
					h.ServeHTTP(w, r)
					return
				}
				log.Debugf("middlewares.cookie_auth: access token cookie rejected")
			}

			refreshToken, err := r.Cookie("refresh_token")
			if err != nil || refreshToken.Value == "" {
				// anonymous
				h.ServeHTTP(w, r)
				return
			}

			access, ok := refreshCookies(w, r, bearerServer, refreshToken.Value)
			if ok {
				r.Header.Set("authorization", "Bearer "+access)
			}
			h.ServeHTTP(w, r)
		})
	}
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// tokenChecker reports whether an access token passes bearer authorization. The
// check runs the oauth middleware on a copy of the request, so the real handler
// runs at most once.
func tokenChecker(secret string) func(r *http.Request, token string) bool {
	authorize := oauth.Authorize(secret, nil)
	return func(r *http.Request, token string) bool {
		passed := false
		check := authorize(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			passed = true
		}))

		req := r.Clone(r.Context())
		req.Header.Set("authorization", "Bearer "+token)
		check.ServeHTTP(httpx.NewResponseBuffer(), req)
		return passed
	}
}

// ClearAuthCookies expires both token cookies.
func ClearAuthCookies(w http.ResponseWriter) {
	clearCookie(w, "access_token")
	clearCookie(w, "refresh_token")
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Path:   "/",
		Name:   name,
		Value:  "",
		MaxAge: -1,
	})
}

// refreshCookies runs a refresh grant and stores the new pair in cookies.
// A rejected refresh token is cleared.
func refreshCookies(w http.ResponseWriter, r *http.Request, bearerServer *oauth.BearerServer, refreshToken string) (string, bool) {
	resp, err := httpx.RefreshGrant(r.Context(), bearerServer, refreshToken)
	if err != nil {
		log.Errorf("middlewares.cookie_auth.refresh: %s", err)
		return "", false
	}
	if resp.Status() != http.StatusOK {
		log.Debugf("middlewares.cookie_auth.refresh: status %d", resp.Status())
		clearCookie(w, "refresh_token")
		return "", false
	}

	var tokens httpx.TokenResponse
	err = resp.Decode(&tokens)
	if err != nil || tokens.AccessToken == "" {
		log.Errorf("middlewares.cookie_auth.decode: %v", err)
		return "", false
	}

	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "access_token",
		Value:    tokens.AccessToken,
		MaxAge:   int(tokens.ExpiresIn),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "refresh_token",
		Value:    tokens.RefreshToken,
		MaxAge:   int(httpx.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return tokens.AccessToken, true
}
