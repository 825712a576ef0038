package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ScopeControl allows posting commands to the control ingress.
const ScopeControl = "control:write"

const issuerName = "leasegate-scheduler"

// ServiceClaims identify a machine caller, never a user.
type ServiceClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Issuer mints and checks short-lived service credentials for internal calls.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("service token secret is not configured")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// ServiceToken returns a token scoped to the control ingress.
func (i *Issuer) ServiceToken() (string, error) {
	now := i.now()
	claims := ServiceClaims{
		Scope: ScopeControl,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   "service:" + issuerName,
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses tokenString and checks that it carries scope.
func (i *Issuer) Verify(tokenString, scope string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method in token")
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuerName), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("invalid service token: %w", err)
	}
	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("could not parse claims from token")
	}
	if claims.Scope != scope {
		return nil, fmt.Errorf("token scope %q does not allow %q", claims.Scope, scope)
	}
	return claims, nil
}
