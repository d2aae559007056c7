package middleware

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

const HeaderUserID = "X-User-Id"

// RequireUser resolves the caller and rejects anonymous requests with 401.
// With a secret it accepts only HS256 bearer tokens and uses the subject
// claim; without one it trusts X-User-Id set by the gateway.
func RequireUser(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var uid string
			if secret != "" {
				uid = subjectFromBearer(r.Header.Get("Authorization"), key)
			} else {
				uid = strings.TrimSpace(r.Header.Get(HeaderUserID))
			}
			if uid == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

func subjectFromBearer(header string, key []byte) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return strings.TrimSpace(claims.Subject)
}
