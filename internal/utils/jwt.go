package utils

import (
	"fmt"
	"time"

	"github.com/go-errors/errors"
	"github.com/golang-jwt/jwt/v5"
)

type Scope string

const (
	// ScopeEngine may attach a WebView as the JavaScript engine.
	ScopeEngine Scope = "engine"
	// ScopeClient may call WalletKit, follow events and open browser sessions.
	ScopeClient Scope = "client"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidScope = errors.New("invalid token scope")
)

type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

func (c Claims) Allows(scope Scope) bool {
	return c.Scope == scope
}

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeEngine, ScopeClient:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidScope, s)
	}
}

// GenerateJWT signs a token for subject. A zero ttl never expires.
func GenerateJWT(signingKey string, subject string, scope Scope, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-30 * time.Second)),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(signingKey))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func VerifyJWT(signingKey string, tokenString string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.NewParser(
		jwt.WithLeeway(5*time.Minute),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method: %s", token.Header["alg"])
		}
		return []byte(signingKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := ParseScope(string(claims.Scope)); err != nil {
		return nil, err
	}
	return claims, nil
}
