package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opencivic/civicflow/internal/models"
)

// TokenIssuer mints and verifies the JWT session tokens the auth
// middleware exchanges for an Actor.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer with the given signing secret
// and token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Claims are the JWT claims a session token carries
type Claims struct {
	Role                 models.Role `json:"role"`
	AssignedAreaID       string      `json:"assigned_area_id,omitempty"`
	AssignedAreaName     string      `json:"assigned_area_name,omitempty"`
	AssignedDepartmentID string      `json:"assigned_department_id,omitempty"`
	jwt.RegisteredClaims
}

// Issue mints a signed token for the given user
func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:                 user.Role,
		AssignedAreaID:       user.AssignedAreaID,
		AssignedAreaName:     user.AssignedAreaName,
		AssignedDepartmentID: user.AssignedDepartmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token string and returns the actor it encodes
func (t *TokenIssuer) Verify(tokenString string) (Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, ErrUnauthenticated
	}
	if claims.Subject == "" || !claims.Role.IsValid() {
		return Actor{}, ErrUnauthenticated
	}

	return Actor{
		ID:                   claims.Subject,
		Role:                 claims.Role,
		AssignedAreaID:       claims.AssignedAreaID,
		AssignedAreaName:     claims.AssignedAreaName,
		AssignedDepartmentID: claims.AssignedDepartmentID,
	}, nil
}
