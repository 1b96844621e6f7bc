package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
)

type contextKey string

const accountContextKey contextKey = "account"

// Account is the identity attached to every authenticated request. The ID
// is the per-account namespace every document query is scoped to.
type Account struct {
	ID    string
	Name  string
	Email string
}

var authenticator auth.Authenticator
var cache store.Cache

// Middleware adds bearer token authentication around accessing the routes
// and stashes the resolved account in the request context
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		zap.S().Debugf("account %s authenticated\n", user.UserName())

		account := Account{ID: user.ID(), Name: user.UserName()}
		if emails := user.Extensions()["email"]; len(emails) > 0 {
			account.Email = emails[0]
		}
		next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), account)))
	})
}

// ContextWithAccount returns a child context carrying the account
func ContextWithAccount(ctx context.Context, account Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext returns the account set by Middleware, or the zero
// Account when the request never passed through it
func AccountFromContext(ctx context.Context) Account {
	account, _ := ctx.Value(accountContextKey).(Account)
	return account
}

// CreateToken exchanges an identity-provider JWT for an API bearer token.
// The provider token is expected in the Authorization header; its subject
// becomes the account ID. We never mint identity ourselves, we only
// translate the provider's signed claims into a revocable session token.
func CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	providerToken, err := bearerToken(r)
	if err != nil {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(providerToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		secret := os.Getenv("IDP_JWT_SECRET")
		if secret == "" {
			return nil, fmt.Errorf("identity provider secret is not set")
		}
		return []byte(secret), nil
	})
	if err != nil {
		zap.S().With(err).Error("failed to verify identity provider token")
		http.Error(w, "invalid identity provider token", http.StatusUnauthorized)
		return
	}

	accountID, _ := claims["sub"].(string)
	if accountID == "" {
		http.Error(w, "identity provider token has no subject", http.StatusUnauthorized)
		return
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)

	token := uuid.New().String()
	authUser := auth.NewDefaultUser(name, accountID, nil, map[string][]string{"email": {email}})
	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Append(tokenStrategy, token, authUser, r)

	response := map[string]string{
		"token":     token,
		"accountID": accountID,
		"name":      name,
	}

	responseBody, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Write(responseBody)
}

// RevokeToken revokes a token
func RevokeToken(w http.ResponseWriter, r *http.Request) {
	reqToken, err := bearerToken(r)
	if err != nil {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Revoke(tokenStrategy, reqToken, r)
	body := fmt.Sprintf(`{"revoked token": "%s"}`, reqToken)
	w.Write([]byte(body))
}

// SetupGoGuardian sets up the go-guardian middleware
func SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), time.Hour*24*30) // sessions live at most 30 days
	tokenStrategy := bearer.New(bearer.NoOpAuthenticate, cache)

	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	splitToken := strings.Split(header, "Bearer ")
	if len(splitToken) < 2 || splitToken[1] == "" {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}
	return splitToken[1], nil
}
