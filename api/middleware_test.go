package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-api/api"
)

func signProviderToken(t *testing.T, secret string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "account-1",
		"name":  "Dr. Smith",
		"email": "smith@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestCreateTokenAndAuthenticate(t *testing.T) {
	os.Setenv("IDP_JWT_SECRET", "test-secret")
	defer os.Unsetenv("IDP_JWT_SECRET")

	api.SetupGoGuardian()

	req, _ := http.NewRequest("POST", "/api/v1/auth/token", nil)
	req.Header.Set("Authorization", "Bearer "+signProviderToken(t, "test-secret"))
	rr := httptest.NewRecorder()

	api.CreateToken(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "account-1", resp["accountID"])
	assert.Equal(t, "Dr. Smith", resp["name"])
	require.NotEmpty(t, resp["token"])

	// the issued token must authenticate and carry the account
	var got api.Account
	handler := api.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = api.AccountFromContext(r.Context())
	}))

	authedReq, _ := http.NewRequest("GET", "/api/v1/patients", nil)
	authedReq.Header.Set("Authorization", "Bearer "+resp["token"])
	authedRR := httptest.NewRecorder()
	handler.ServeHTTP(authedRR, authedReq)

	require.Equal(t, http.StatusOK, authedRR.Code)
	assert.Equal(t, "account-1", got.ID)
	assert.Equal(t, "Dr. Smith", got.Name)
	assert.Equal(t, "smith@example.com", got.Email)
}

func TestCreateTokenRejectsWrongSecret(t *testing.T) {
	os.Setenv("IDP_JWT_SECRET", "test-secret")
	defer os.Unsetenv("IDP_JWT_SECRET")

	api.SetupGoGuardian()

	req, _ := http.NewRequest("POST", "/api/v1/auth/token", nil)
	req.Header.Set("Authorization", "Bearer "+signProviderToken(t, "some-other-secret"))
	rr := httptest.NewRecorder()

	api.CreateToken(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareRejectsUnknownToken(t *testing.T) {
	api.SetupGoGuardian()

	handler := api.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req, _ := http.NewRequest("GET", "/api/v1/patients", nil)
	req.Header.Set("Authorization", "Bearer never-issued")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error": "unauthorized"}`, rr.Body.String())
}

func TestRevokeToken(t *testing.T) {
	os.Setenv("IDP_JWT_SECRET", "test-secret")
	defer os.Unsetenv("IDP_JWT_SECRET")

	api.SetupGoGuardian()

	req, _ := http.NewRequest("POST", "/api/v1/auth/token", nil)
	req.Header.Set("Authorization", "Bearer "+signProviderToken(t, "test-secret"))
	rr := httptest.NewRecorder()
	api.CreateToken(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	revokeReq, _ := http.NewRequest("DELETE", "/api/v1/auth/logout", nil)
	revokeReq.Header.Set("Authorization", "Bearer "+resp["token"])
	revokeRR := httptest.NewRecorder()
	api.RevokeToken(revokeRR, revokeReq)
	require.Equal(t, http.StatusOK, revokeRR.Code)

	// the revoked token no longer authenticates
	handler := api.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	authedReq, _ := http.NewRequest("GET", "/api/v1/patients", nil)
	authedReq.Header.Set("Authorization", "Bearer "+resp["token"])
	authedRR := httptest.NewRecorder()
	handler.ServeHTTP(authedRR, authedReq)

	assert.Equal(t, http.StatusUnauthorized, authedRR.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := api.NewRateLimiter(1, 2)
	calls := 0
	handler := api.RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest("POST", "/api/v1/auth/token", nil)
		req.RemoteAddr = "10.0.0.1:51234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if i < 2 {
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	}
	// burst of 2, anything beyond is throttled
	assert.LessOrEqual(t, calls, 3)

	// a different client has its own bucket
	req, _ := http.NewRequest("POST", "/api/v1/auth/token", nil)
	req.RemoteAddr = "10.0.0.2:51234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
