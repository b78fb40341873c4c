package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/scenerelay/internal/config"
)

func iamServer(t *testing.T, accessToken string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "urn:ibm:params:oauth:grant-type:apikey", r.PostForm.Get("grant_type"))
		assert.Equal(t, "secret-key", r.PostForm.Get("apikey"))

		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": accessToken,
				"expiration":   1700000000,
			})
			return
		}
		_, _ = w.Write([]byte(`{"errorMessage":"bad key"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test"))
	require.NoError(t, err)
	return s
}

func TestNew_SelectsScheme(t *testing.T) {
	a := New(config.Credentials{Username: "u", Password: "p"}, nil)
	assert.IsType(t, &Basic{}, a)

	a = New(config.Credentials{APIKey: "k"}, nil)
	assert.IsType(t, &IAM{}, a)
}

func TestBasic_Authorize(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, (&Basic{Username: "u", Password: "p"}).Authorize(context.Background(), req))

	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
}

func TestIAM_TokenReadsJWTExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, exp)
	srv := iamServer(t, access, http.StatusOK)

	tok, err := NewIAM("secret-key", srv.URL, srv.Client()).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, tok.AccessToken)
	assert.True(t, exp.Equal(tok.ExpiresAt))
}

func TestIAM_OpaqueTokenFallsBackToExpiration(t *testing.T) {
	srv := iamServer(t, "opaque", http.StatusOK)

	tok, err := NewIAM("secret-key", srv.URL, srv.Client()).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0), tok.ExpiresAt)
}

func TestIAM_AuthorizeSetsBearer(t *testing.T) {
	srv := iamServer(t, "opaque", http.StatusOK)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, NewIAM("secret-key", srv.URL, srv.Client()).Authorize(context.Background(), req))
	assert.Equal(t, "Bearer opaque", req.Header.Get("Authorization"))
}

func TestIAM_Errors(t *testing.T) {
	_, err := NewIAM("", "", nil).Token(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)

	srv := iamServer(t, "", http.StatusBadRequest)
	_, err = NewIAM("secret-key", srv.URL, srv.Client()).Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
