package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/oauth"
	"github.com/mbolis/uss/database"
	"github.com/mbolis/uss/model"
	"github.com/mbolis/uss/survey"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	assert.Equal(t, http.StatusOK, buf.Status())

	buf.Header().Set("X-Test", "1")
	buf.WriteHeader(http.StatusTeapot)
	buf.WriteHeader(http.StatusOK)
	_, err := buf.Write([]byte(`{"access_token":"abc","expires_in":60}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, buf.Status(), "first status wins")

	var tokens TokenResponse
	require.NoError(t, buf.Decode(&tokens))
	assert.Equal(t, "abc", tokens.AccessToken)
	assert.EqualValues(t, 60, tokens.ExpiresIn)

	rec := httptest.NewRecorder()
	require.NoError(t, buf.Flush(rec))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, string(buf.Body()), rec.Body.String())
}

func TestLogError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: bad pool", survey.ErrInvalidQuestionDefinition), http.StatusBadRequest},
		{fmt.Errorf("%w: out of range", survey.ErrInvalidAnswer), http.StatusBadRequest},
		{fmt.Errorf("%w: dates", survey.ErrInvalidSurvey), http.StatusBadRequest},
		{errors.Wrap(database.ErrNotFound, "db.get_survey"), http.StatusNotFound},
		{errors.Wrap(database.ErrConflict, "db.insert_category"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			LogError(rec, "test", tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"error":%q`, http.StatusText(tc.status)))
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	type payload struct {
		Name  string `json:"name" validate:"required,max=4"`
		Count int    `json:"count" validate:"min=1"`
	}

	tests := []struct {
		name   string
		body   string
		ok     bool
		reason string
	}{
		{"valid", `{"name": "abc", "count": 2}`, true, ""},
		{"malformed", `{"name":`, false, "malformed JSON body"},
		{"field errors use json names", `{"name": "abcdef", "count": 0}`, false, "name: failed 'max=4'; count: failed 'min=1'"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			var p payload
			assert.Equal(t, tc.ok, DecodeAndValidate(rec, req, "test", &p))
			if !tc.ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, rec.Body.String(), tc.reason)
			}
		})
	}
}

func TestCredentialsVerifier(t *testing.T) {
	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	staff := model.User{Username: "boss", PasswordHash: hash, IsStaff: true}
	require.NoError(t, store.CreateUser(ctx, &staff))
	plain := model.User{Username: "joe", PasswordHash: hash}
	require.NoError(t, store.CreateUser(ctx, &plain))

	verifier := CredentialsVerifier(store)

	t.Run("password", func(t *testing.T) {
		assert.NoError(t, verifier.ValidateUser("boss", "s3cret-pass", "", nil))
		assert.Error(t, verifier.ValidateUser("boss", "wrong", "", nil))
		assert.ErrorIs(t, verifier.ValidateUser("nobody", "s3cret-pass", "", nil), database.ErrNotFound)
	})

	t.Run("claims", func(t *testing.T) {
		claims, err := verifier.AddClaims(oauth.BearerToken, "boss", "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"roles": "user,admin", "user_id": fmt.Sprint(staff.ID)}, claims)

		claims, err = verifier.AddClaims(oauth.BearerToken, "joe", "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"roles": "user", "user_id": fmt.Sprint(plain.ID)}, claims)
	})

	t.Run("refresh tokens are single use", func(t *testing.T) {
		require.NoError(t, verifier.StoreTokenID(oauth.BearerToken, "joe", "tok", "ref"))
		assert.NoError(t, verifier.ValidateTokenID(oauth.BearerToken, "joe", "tok", "ref"))
		assert.ErrorIs(t, verifier.ValidateTokenID(oauth.BearerToken, "joe", "tok", "ref"), errCouldNotRefresh)
	})

	t.Run("client credentials are not supported", func(t *testing.T) {
		assert.Error(t, verifier.ValidateClient("id", "secret", "", nil))
	})
}
