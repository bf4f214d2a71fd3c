package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/oauth"
	"github.com/mbolis/uss/database"
	"github.com/mbolis/uss/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RefreshTokenTTL bounds both the stored refresh token and its cookie.
const RefreshTokenTTL = 8760 * time.Hour

var errCouldNotRefresh = errors.New("could not refresh")

type credentialsVerifier struct {
	repo database.Repository
}

func CredentialsVerifier(repo database.Repository) oauth.CredentialsVerifier {
	return &credentialsVerifier{repo}
}

func NewBearerServer(repo database.Repository, secret string, ttl time.Duration) *oauth.BearerServer {
	return oauth.NewBearerServer(secret, ttl, CredentialsVerifier(repo), nil)
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	user, err := cs.repo.GetUserByUsername(requestContext(r), username)
	if err != nil {
		log.Debugf("credentials.validate_user: %s", err)
		return err
	}

	return bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password))
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.repo.StoreToken(
		context.Background(),
		credential,
		tokenID,
		refreshTokenID,
		time.Now().Add(RefreshTokenTTL),
	)
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	expiration, err := cs.repo.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID)
	if err != nil {
		log.Debugf("credentials.validate_token: %s", err)
		return errCouldNotRefresh
	}

	if expiration.Before(time.Now()) {
		return errCouldNotRefresh
	}
	return nil
}
func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	user, err := cs.repo.GetUserByUsername(requestContext(r), credential)
	if err != nil {
		return nil, err
	}

	roles := []string{RoleUser}
	if user.IsStaff {
		roles = append(roles, RoleAdmin)
	}
	return map[string]string{
		"roles":   strings.Join(roles, ","),
		"user_id": strconv.Itoa(user.ID),
	}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
