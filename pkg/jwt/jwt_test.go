package jwt

import (
	"errors"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Test constants
const (
	testSecretKey = "test-secret-key-minimum-32-characters"
	testIssuer    = "test-issuer"
	testEmail     = "test@example.com"
	testRole      = "user"
)

func getTestConfig() Config {
	return Config{
		SecretKey:      testSecretKey,
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         testIssuer,
	}
}

func TestNewJWTService(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectPanic bool
	}{
		{name: "Valid config", config: getTestConfig()},
		{name: "Short secret key should panic", config: Config{SecretKey: "short"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.expectPanic {
				assert.Panics(t, func() { NewJWTService(tt.config) })
				return
			}
			assert.NotNil(t, NewJWTService(tt.config))
		})
	}
}

func TestGenerateAndValidate(t *testing.T) {
	service := NewJWTService(getTestConfig())
	userID := primitive.NewObjectID()
	tenantID := primitive.NewObjectID()

	token, expiresAt, err := service.GenerateAccessToken(userID, tenantID, testEmail, testRole)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)

	gotTenant, err := claims.TenantObjectID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)

	gotUser, err := claims.UserObjectID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestValidateToken_Rejections(t *testing.T) {
	service := NewJWTService(getTestConfig())
	other := NewJWTService(Config{SecretKey: "another-secret-key-minimum-32-characters", Issuer: testIssuer})

	foreign, _, err := other.GenerateAccessToken(primitive.NewObjectID(), primitive.NewObjectID(), testEmail, testRole)
	require.NoError(t, err)

	refresh, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		UserID: primitive.NewObjectID().Hex(),
		Type:   "refresh",
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecretKey))
	require.NoError(t, err)

	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		Type: "access",
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(testSecretKey))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		check func(t *testing.T, err error)
	}{
		{name: "Malformed", token: "not-a-token", check: func(t *testing.T, err error) { assert.Error(t, err) }},
		{name: "Wrong signature", token: foreign, check: func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, gojwt.ErrTokenSignatureInvalid))
		}},
		{name: "Refresh token", token: refresh, check: func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrInvalidTokenType)
		}},
		{name: "Expired", token: expired, check: func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, gojwt.ErrTokenExpired))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClaims_TenantObjectIDMissing(t *testing.T) {
	_, err := (&Claims{}).TenantObjectID()
	assert.ErrorIs(t, err, ErrMissingTenant)
}
