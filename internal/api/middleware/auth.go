package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/utils"
	jwtPkg "Omerix_API_Informes/pkg/jwt"
)

const (
	// LocalActor clave de fiber.Locals con el models.Actor autenticado
	LocalActor = "actor"
	// LocalUserRole rol del usuario autenticado
	LocalUserRole = "userRole"
)

// TokenValidator parte del servicio JWT que usa el middleware
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtPkg.Claims, error)
}

// AuthMiddleware resuelve empresa y usuario a partir del token de acceso
type AuthMiddleware struct {
	jwtService TokenValidator
	logger     *zap.Logger
}

// NewAuthMiddleware crea el middleware de autenticación
func NewAuthMiddleware(jwtService TokenValidator, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logger.With(zap.String("component", "auth_middleware")),
	}
}

// RequireTenant exige un token de acceso válido con empresa y usuario.
// El actor resultante es la única fuente del tenant para los handlers.
func (m *AuthMiddleware) RequireTenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			m.logger.Debug("Missing authorization header")
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization header required", "")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.logger.Debug("Invalid authorization header format")
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization header format", "Use 'Bearer <token>'")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Token is required", "")
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("Invalid token", zap.Error(err))
			if errors.Is(err, jwt.ErrTokenExpired) {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Token expired", "Please refresh your token")
			}
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token", "")
		}

		userID, err := claims.UserObjectID()
		if err != nil {
			m.logger.Warn("Invalid user ID in token", zap.String("user_id", claims.UserID))
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token", "invalid user")
		}

		tenantID, err := claims.TenantObjectID()
		if err != nil || tenantID.IsZero() {
			m.logger.Warn("Token without tenant", zap.String("user_id", claims.UserID))
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Tenant required", "token has no empresa")
		}

		c.Locals(LocalActor, models.Actor{TenantID: tenantID, UserID: userID})
		c.Locals(LocalUserRole, claims.Role)

		return c.Next()
	}
}

// RequireRole exige que el usuario autenticado tenga uno de los roles
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalUserRole).(string)
		if !ok {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "")
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				return c.Next()
			}
		}

		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", "")
	}
}

// ActorFrom devuelve el actor guardado por RequireTenant
func ActorFrom(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(LocalActor).(models.Actor)
	if !ok || actor.TenantID.IsZero() {
		return models.Actor{}, false
	}
	return actor, true
}
