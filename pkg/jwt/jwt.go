package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidToken     = errors.New("token inválido")
	ErrInvalidTokenType = errors.New("tipo de token inválido")
	ErrMissingTenant    = errors.New("el token no contiene empresa")
)

// JWTService interfaz para el servicio JWT
type JWTService interface {
	GenerateAccessToken(userID, tenantID primitive.ObjectID, email, role string) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// jwtService implementación del servicio JWT
type jwtService struct {
	secretKey      []byte
	accessTokenTTL time.Duration
	issuer         string
}

// Claims estructura de claims JWT personalizada. TenantID identifica la
// empresa cuyos datos puede consultar el portador.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"empresa_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Type     string `json:"type"` // "access" o "refresh"
	jwt.RegisteredClaims
}

// UserObjectID identificador del usuario
func (c *Claims) UserObjectID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.UserID)
}

// TenantObjectID identificador de la empresa
func (c *Claims) TenantObjectID() (primitive.ObjectID, error) {
	if c.TenantID == "" {
		return primitive.NilObjectID, ErrMissingTenant
	}
	return primitive.ObjectIDFromHex(c.TenantID)
}

// Config configuración para JWT Service
type Config struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	Issuer         string
}

// NewJWTService crea una nueva instancia del servicio JWT
func NewJWTService(config Config) JWTService {
	if len(config.SecretKey) < 32 {
		panic("JWT secret key must be at least 32 characters long")
	}
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = 15 * time.Minute
	}
	return &jwtService{
		secretKey:      []byte(config.SecretKey),
		accessTokenTTL: config.AccessTokenTTL,
		issuer:         config.Issuer,
	}
}

// GenerateAccessToken genera un token de acceso ligado a una empresa
func (s *jwtService) GenerateAccessToken(userID, tenantID primitive.ObjectID, email, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTokenTTL)

	claims := Claims{
		UserID:   userID.Hex(),
		TenantID: tenantID.Hex(),
		Email:    email,
		Role:     role,
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID.Hex(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateToken valida un token de acceso JWT
func (s *jwtService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != "access" {
		return nil, ErrInvalidTokenType
	}

	return claims, nil
}
