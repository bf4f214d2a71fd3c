package httpx

import (
	"bytes"
	"context"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/oauth"
	"github.com/goccy/go-json"
)

// ResponseBuffer records a response in memory, so that a handler can be run
// in-process and its outcome inspected before anything reaches the client.
type ResponseBuffer struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func NewResponseBuffer() *ResponseBuffer {
	return &ResponseBuffer{header: http.Header{}}
}

func (b *ResponseBuffer) Header() http.Header {
	return b.header
}

func (b *ResponseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *ResponseBuffer) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)
	return b.body.Write(p)
}

// Status defaults to 200, as it would on the wire.
func (b *ResponseBuffer) Status() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *ResponseBuffer) Body() []byte {
	return b.body.Bytes()
}

func (b *ResponseBuffer) Decode(v any) error {
	return json.Unmarshal(b.body.Bytes(), v)
}

// Flush replays the recorded response on w.
func (b *ResponseBuffer) Flush(w http.ResponseWriter) error {
	maps.Copy(w.Header(), b.header)
	w.WriteHeader(b.Status())
	_, err := w.Write(b.body.Bytes())
	return err
}

// TokenResponse is the body of a successful password or refresh grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshGrant exchanges a refresh token for a new token pair, running the
// bearer server's token endpoint in-process.
func RefreshGrant(ctx context.Context, server *oauth.BearerServer, refreshToken string) (*ResponseBuffer, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := NewResponseBuffer()
	server.UserCredentials(resp, req)
	return resp, nil
}
