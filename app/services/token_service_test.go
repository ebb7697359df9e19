package services

import (
	"sync"
	"testing"
	"time"

	"github.com/amirphl/orochi-idgen/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T) TokenService {
	t.Helper()
	service, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", testSecret)
	require.NoError(t, err)
	return service
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		issuer      string
		audience    string
		secretKey   string
		expectError bool
	}{
		{
			name:      "valid symmetric key configuration",
			ttl:       15 * time.Minute,
			issuer:    "test-issuer",
			audience:  "test-audience",
			secretKey: testSecret,
		},
		{
			name:        "missing secret key",
			ttl:         15 * time.Minute,
			expectError: true,
		},
		{
			name:        "non positive ttl",
			secretKey:   testSecret,
			expectError: true,
		},
		{
			name:      "empty issuer and audience",
			ttl:       15 * time.Minute,
			secretKey: testSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(tt.ttl, tt.issuer, tt.audience, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	service := createTestTokenService(t)

	token, err := service.GenerateToken("ops", []string{ScopeRead, ScopeGenerate})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.HasScope(ScopeGenerate))
	assert.True(t, claims.HasScope(ScopeRead))
	assert.False(t, claims.HasScope("admin"))
	assert.Len(t, claims.TokenID, 32)
	assert.WithinDuration(t, claims.IssuedAt.Add(15*time.Minute), claims.ExpiresAt, time.Second)
	assert.WithinDuration(t, utils.UTCNowAdd(15*time.Minute), claims.ExpiresAt, 2*time.Second)

	_, err = service.GenerateToken("", nil)
	assert.Error(t, err)
}

func TestValidateTokenFailures(t *testing.T) {
	service := createTestTokenService(t)

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "ops",
			ID:        "abc",
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-audience"},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}
	}

	tests := []struct {
		name  string
		token func() string
		want  error
	}{
		{
			name:  "garbage",
			token: func() string { return "not-a-token" },
			want:  ErrTokenInvalid,
		},
		{
			name: "expired",
			token: func() string {
				c := valid()
				c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Second))
				return sign(operatorClaims{RegisteredClaims: c}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: ErrTokenExpired,
		},
		{
			name: "wrong key",
			token: func() string {
				return sign(operatorClaims{RegisteredClaims: valid()}, jwt.SigningMethodHS256, []byte("another-secret-key-of-32-characters"))
			},
			want: ErrTokenInvalid,
		},
		{
			name: "wrong algorithm",
			token: func() string {
				return sign(operatorClaims{RegisteredClaims: valid()}, jwt.SigningMethodHS512, []byte(testSecret))
			},
			want: ErrTokenInvalid,
		},
		{
			name: "wrong audience",
			token: func() string {
				c := valid()
				c.Audience = jwt.ClaimStrings{"someone-else"}
				return sign(operatorClaims{RegisteredClaims: c}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: ErrTokenInvalid,
		},
		{
			name: "missing expiry",
			token: func() string {
				c := valid()
				c.ExpiresAt = nil
				return sign(operatorClaims{RegisteredClaims: c}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: ErrTokenInvalid,
		},
		{
			name: "missing subject",
			token: func() string {
				c := valid()
				c.Subject = ""
				return sign(operatorClaims{RegisteredClaims: c}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token())
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, claims)
		})
	}
}

func TestRevokeToken(t *testing.T) {
	service := createTestTokenService(t)

	token, err := service.GenerateToken("ops", []string{ScopeRead})
	require.NoError(t, err)
	other, err := service.GenerateToken("ops", []string{ScopeRead})
	require.NoError(t, err)

	require.NoError(t, service.RevokeToken(token))

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = service.ValidateToken(other)
	assert.NoError(t, err)

	assert.Error(t, service.RevokeToken("not-a-token"))
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := createTestTokenService(t)

	const numGoroutines = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]bool)
	)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := service.GenerateToken("ops", []string{ScopeGenerate})
			if !assert.NoError(t, err) {
				return
			}
			claims, err := service.ValidateToken(token)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[claims.TokenID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, numGoroutines)
}
