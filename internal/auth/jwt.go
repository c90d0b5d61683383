package auth

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ScopeAnalyticsRead grants access to the KPI endpoints.
const ScopeAnalyticsRead = "analytics:read"

// Claims defines the structured data we store in the JWT
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a new signed access token for subject
func (tm *TokenManager) GenerateToken(subject string, scopes ...string) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ServiceTokenSource mints service tokens for outgoing calls and reuses
// each one until it is close to expiry.
type ServiceTokenSource struct {
	tm      *TokenManager
	subject string
	scopes  []string
	margin  time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewServiceTokenSource returns a source that signs tokens for subject.
func NewServiceTokenSource(tm *TokenManager, subject string, scopes ...string) *ServiceTokenSource {
	return &ServiceTokenSource{
		tm:      tm,
		subject: subject,
		scopes:  scopes,
		margin:  tm.ttl / 5,
	}
}

// Token returns a valid bearer token.
func (s *ServiceTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.tm.now().Add(s.margin).Before(s.expiresAt) {
		return s.token, nil
	}

	token, expiresAt, err := s.tm.GenerateToken(s.subject, s.scopes...)
	if err != nil {
		return "", err
	}
	s.token, s.expiresAt = token, expiresAt
	return token, nil
}
