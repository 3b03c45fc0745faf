package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrWrongScope   = errors.New("wrong token scope for this endpoint")
)

const (
	issuer   = "whitelist-bot"
	audience = "ingress"
)

type Scope string

const (
	// ScopeGateway forwards member interactions.
	ScopeGateway Scope = "gateway"
	// ScopeAdmin writes tenant configuration and reads the case table.
	ScopeAdmin Scope = "admin"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeGateway || s == ScopeAdmin
}

// IngressClaims are carried by every token accepted by the HTTP ingress
type IngressClaims struct {
	Scope    Scope    `json:"scope"`
	TenantID string   `json:"tenant_id,omitempty"` // empty means every tenant
	ActorID  string   `json:"actor_id,omitempty"`
	RoleIDs  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// AllowsTenant reports whether the token may act on tenantID.
func (c *IngressClaims) AllowsTenant(tenantID string) bool {
	return c.TenantID == "" || c.TenantID == tenantID
}

type TokenManager interface {
	GenerateToken(scope Scope, tenantID, actorID string, roles []string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*IngressClaims, error)
}

type tokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (m *tokenManager) GenerateToken(scope Scope, tenantID, actorID string, roles []string, ttl time.Duration) (string, error) {
	if !scope.Valid() {
		return "", ErrWrongScope
	}
	now := m.now()
	claims := IngressClaims{
		Scope:    scope,
		TenantID: tenantID,
		ActorID:  actorID,
		RoleIDs:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*IngressClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IngressClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*IngressClaims); ok && token.Valid && claims.Scope.Valid() {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
