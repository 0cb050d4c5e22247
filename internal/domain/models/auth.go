package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the JWT claim set issued by the identity provider. The
// subject carries the numeric user id.
type AuthClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// UserID parses the numeric user id from the subject claim.
func (c *AuthClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}
