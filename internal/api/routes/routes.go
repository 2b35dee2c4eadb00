package routes

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/api/handlers"
	"Omerix_API_Informes/internal/api/middleware"
)

// RouteConfig dependencias de las rutas
type RouteConfig struct {
	InformeHandler *handlers.InformeHandler
	IAHandler      *handlers.IAHandler
	AuthMiddleware *middleware.AuthMiddleware
	Logger         *zap.Logger
}

// SetupRoutes registra las rutas de la API de informes
func SetupRoutes(app *fiber.App, config *RouteConfig) {
	api := app.Group("/api/v1")
	informes := api.Group("/informes", config.AuthMiddleware.RequireTenant())

	// rutas estáticas antes que /:id
	informes.Get("/catalogo/:modulo", config.InformeHandler.GetCatalog)
	informes.Post("/ejecutar", config.InformeHandler.ExecuteAdHoc)
	informes.Post("/plantillas/seed", config.InformeHandler.SeedTemplates)
	if config.IAHandler != nil {
		informes.Post("/ia/generar", config.IAHandler.GenerateInforme)
	}

	informes.Get("/", config.InformeHandler.ListInformes)
	informes.Post("/", config.InformeHandler.CreateInforme)
	informes.Get("/:id", config.InformeHandler.GetInforme)
	informes.Put("/:id", config.InformeHandler.UpdateInforme)
	informes.Delete("/:id", config.InformeHandler.DeleteInforme)
	informes.Post("/:id/duplicar", config.InformeHandler.DuplicateInforme)
	informes.Post("/:id/favorito", config.InformeHandler.ToggleFavorite)
	informes.Post("/:id/ejecutar", config.InformeHandler.ExecuteInforme)
	informes.Get("/:id/exportar", config.InformeHandler.ExportInforme)

	if config.Logger != nil {
		config.Logger.Info("Routes configured", zap.Int("handlers", int(app.HandlersCount())))
	}
}

// ValidateRouteConfig comprueba que las dependencias obligatorias existen
func ValidateRouteConfig(config *RouteConfig) error {
	if config == nil {
		return fmt.Errorf("route config cannot be nil")
	}
	if config.InformeHandler == nil {
		return fmt.Errorf("informe handler is required")
	}
	if config.AuthMiddleware == nil {
		return fmt.Errorf("auth middleware is required")
	}
	return nil
}
