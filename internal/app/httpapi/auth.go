package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const (
	ctxCustomerKey ctxKey = iota
	ctxRoleKey
)

// Claims are the token claims the storefront and back office run on.
type Claims struct {
	CustomerID string `json:"customer_id"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies and issues HS256 bearer tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator with the shared signing secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken signs a token for the given identity, mainly for tooling and
// tests.
func (a *Authenticator) IssueToken(customerID, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		CustomerID: customerID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses and validates a token string.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("no auth secret configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.CustomerID == "" {
		return nil, fmt.Errorf("token missing customer_id")
	}
	return claims, nil
}

// withAuthContext parses an optional bearer token and stores the identity in
// the request context. A present but invalid token is rejected here so
// handlers only ever see verified identities.
func (h *handler) withAuthContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid authorization header"))
			return
		}

		claims, err := h.auth.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), ctxCustomerKey, claims.CustomerID)
		if claims.Role != "" {
			ctx = context.WithValue(ctx, ctxRoleKey, claims.Role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func customerFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxCustomerKey).(string)
	return id
}

func roleFrom(ctx context.Context) string {
	role, _ := ctx.Value(ctxRoleKey).(string)
	return role
}

// requireCustomer resolves the authenticated customer or answers 401.
func requireCustomer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := customerFrom(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return "", false
	}
	return id, true
}

// requireAdmin answers 401 for anonymous callers and 403 for non-admins.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if customerFrom(r.Context()) == "" {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return false
	}
	if roleFrom(r.Context()) != "admin" {
		writeError(w, http.StatusForbidden, fmt.Errorf("admin role required"))
		return false
	}
	return true
}
