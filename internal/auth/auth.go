package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingAuthorization = errors.New("missing Authorization header")
	ErrInvalidAuthorization = errors.New("invalid Authorization header format")
	ErrMissingToken         = errors.New("missing bearer token")
)

func ExtractBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuthorization
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", ErrInvalidAuthorization
	}

	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// TokenMatches reports whether presented equals expected. Empty values never
// match. Both sides are hashed first so the comparison time does not depend
// on the token length.
func TokenMatches(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	p := sha256.Sum256([]byte(presented))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(p[:], e[:]) == 1
}

// RequireBearer guards a route with a static bearer token. An empty token
// leaves the route open. Rejected requests are passed to deny.
func RequireBearer(token string, deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, err := ExtractBearerToken(r)
			if err != nil || !TokenMatches(presented, token) {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
