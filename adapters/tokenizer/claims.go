package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the standard claims of a session cookie token.
// The session id travels as the JWT ID.
type SessionClaims struct {
	jwt.RegisteredClaims
}
