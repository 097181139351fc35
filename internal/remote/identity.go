package remote

import (
	"github.com/golang-jwt/jwt/v5"
)

// LocalUser is the identity used for all progress recorded while
// unauthenticated.
const LocalUser = "local"

// UserID derives the progress namespace from a bearer token: the token's
// `sub` claim, which is the same key the server uses. The signature is not
// verified here — the server enforces authenticity; the client only needs a
// stable namespace. An empty or unparsable token maps to LocalUser.
func UserID(token string) string {
	if token == "" {
		return LocalUser
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return LocalUser
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return LocalUser
	}
	return sub
}
