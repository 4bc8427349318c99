// Package auth verifies bearer tokens issued by the external identity provider.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/asksenior/backend/internal/models"
)

// Identity is the caller named by a verified token.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (i Identity) IsPlatformAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Claims mirrors the access tokens of the identity provider. The platform
// role is read from app_metadata, falling back to the top-level role.
type Claims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, models.NewUnauthorizedError("missing bearer token")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, models.NewUnauthorizedError("token expired")
		}
		return Identity{}, models.NewUnauthorizedError("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, models.NewUnauthorizedError("invalid token claims")
	}

	role := claims.AppMetadata.Role
	if role == "" && claims.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}
	if role == "" {
		role = models.RoleUser
	}
	return Identity{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}

// Sign issues a token for id. The server only verifies tokens; Sign exists
// for tests and local tooling.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	claims.AppMetadata.Role = id.Role
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
