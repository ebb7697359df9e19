// Package services provides technical concerns of the API such as operator tokens
package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/orochi-idgen/utils"
	"github.com/golang-jwt/jwt/v5"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Scopes granted to operator tokens
const (
	ScopeRead     = "generators:read"
	ScopeGenerate = "generators:next"
)

// TokenService handles JWT generation and validation for API operators
type TokenService interface {
	GenerateToken(subject string, scopes []string) (string, error)
	ValidateToken(token string) (*TokenClaims, error)
	RevokeToken(token string) error
	IsTokenRevoked(tokenID string) bool
}

// TokenClaims represents the claims in an operator token
type TokenClaims struct {
	Subject   string    `json:"sub"`
	Scopes    []string  `json:"scopes"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenID   string    `json:"jti"`
}

// HasScope reports whether the token grants scope
func (c *TokenClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

type operatorClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	accessTokenTTL time.Duration
	secretKey      []byte
	issuer         string
	audience       string
	parser         *jwt.Parser

	mu      sync.RWMutex // guards revoked
	revoked map[string]time.Time
}

// NewTokenService creates a new token service signing with HS256
func NewTokenService(accessTokenTTL time.Duration, issuer, audience, secretKey string) (TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if accessTokenTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &TokenServiceImpl{
		accessTokenTTL: accessTokenTTL,
		secretKey:      []byte(secretKey),
		issuer:         issuer,
		audience:       audience,
		parser:         jwt.NewParser(opts...),
		revoked:        make(map[string]time.Time),
	}, nil
}

// GenerateToken issues an access token for an operator
func (s *TokenServiceImpl) GenerateToken(subject string, scopes []string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	now := utils.UTCNow()

	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}

	claims := operatorClaims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(utils.UTCNowAdd(s.accessTokenTTL)),
			Issuer:    s.issuer,
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

// ValidateToken validates a token and returns its claims
func (s *TokenServiceImpl) ValidateToken(token string) (*TokenClaims, error) {
	var claims operatorClaims
	parsed, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	if s.IsTokenRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}

	return &TokenClaims{
		Subject:   claims.Subject,
		Scopes:    strings.Fields(claims.Scope),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		TokenID:   claims.ID,
	}, nil
}

// RevokeToken adds the token to the in-memory revocation list until it expires
func (s *TokenServiceImpl) RevokeToken(token string) error {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("cannot revoke token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[claims.TokenID] = claims.ExpiresAt
	for id, exp := range s.revoked {
		if utils.IsExpired(exp) {
			delete(s.revoked, id)
		}
	}
	return nil
}

// IsTokenRevoked checks if a token ID has been revoked
func (s *TokenServiceImpl) IsTokenRevoked(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
