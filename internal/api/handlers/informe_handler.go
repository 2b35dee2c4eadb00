package handlers

import (
	"fmt"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/api/middleware"
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/repository"
	"Omerix_API_Informes/internal/services"
	"Omerix_API_Informes/internal/utils"
)

// InformeHandler endpoints de definiciones de informe
type InformeHandler struct {
	informeService services.InformeService
	validator      *utils.Validator
	logger         *zap.Logger
}

// NewInformeHandler crea el handler de informes
func NewInformeHandler(informeService services.InformeService, validator *utils.Validator, logger *zap.Logger) *InformeHandler {
	return &InformeHandler{
		informeService: informeService,
		validator:      validator,
		logger:         logger.With(zap.String("component", "informe_handler")),
	}
}

func parseID(c *fiber.Ctx) (primitive.ObjectID, error) {
	raw := c.Params("id")
	if err := utils.ValidateObjectID(raw); err != nil {
		return primitive.NilObjectID, utils.NewBadRequestError("Invalid informe ID", raw)
	}
	id, _ := primitive.ObjectIDFromHex(raw)
	return id, nil
}

// GetCatalog godoc
// @Summary Campos consultables de un módulo
// @Tags informes
// @Produce json
// @Param modulo path string true "Módulo"
// @Router /api/v1/informes/catalogo/{modulo} [get]
func (h *InformeHandler) GetCatalog(c *fiber.Ctx) error {
	fields, err := h.informeService.Catalog(catalog.Module(c.Params("modulo")))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Catalog retrieved successfully", fields)
}

// CreateInforme godoc
// @Summary Crea una definición de informe
// @Tags informes
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/informes [post]
func (h *InformeHandler) CreateInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}

	var req models.InformeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid JSON format", err)
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return utils.HandleError(c, err)
	}

	informe, err := h.informeService.Create(c.UserContext(), actor, &req)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, "Informe created successfully", informe)
}

// ListInformes godoc
// @Summary Lista las definiciones del tenant
// @Tags informes
// @Param modulo query string false "Módulo"
// @Param favoritos query bool false "Solo favoritos"
// @Param plantillas query bool false "Solo plantillas (true) o solo propias (false)"
// @Param search query string false "Búsqueda por nombre"
// @Param page query int false "Página" default(1)
// @Param page_size query int false "Tamaño de página" default(20)
// @Router /api/v1/informes [get]
func (h *InformeHandler) ListInformes(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}

	filter := repository.InformeFilter{
		SoloFavoritos: c.QueryBool("favoritos", false),
		Search:        strings.TrimSpace(c.Query("search")),
	}
	if m := c.Query("modulo"); m != "" {
		modulo := catalog.Module(m)
		filter.Modulo = &modulo
	}
	if p := c.Query("plantillas"); p != "" {
		esPlantilla := c.QueryBool("plantillas")
		filter.EsPlantilla = &esPlantilla
	}

	opts := repository.PaginationOptions{
		Page:      c.QueryInt("page", 1),
		PageSize:  c.QueryInt("page_size", 20),
		SortBy:    c.Query("sort_by", "updatedAt"),
		SortOrder: c.Query("sort_order", "desc"),
	}.Normalize(20, 100)

	informes, total, err := h.informeService.List(c.UserContext(), actor, filter, opts)
	if err != nil {
		return utils.HandleError(c, err)
	}

	return utils.Paginated(c, "Informes retrieved successfully", informes, utils.PaginationInfo{
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(opts.PageSize))),
	})
}

// GetInforme godoc
// @Summary Obtiene una definición
// @Tags informes
// @Router /api/v1/informes/{id} [get]
func (h *InformeHandler) GetInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	informe, err := h.informeService.GetByID(c.UserContext(), actor, id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Informe retrieved successfully", informe)
}

// UpdateInforme godoc
// @Summary Actualiza una definición propia
// @Tags informes
// @Router /api/v1/informes/{id} [put]
func (h *InformeHandler) UpdateInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var req models.InformeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid JSON format", err)
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return utils.HandleError(c, err)
	}

	informe, err := h.informeService.Update(c.UserContext(), actor, id, &req)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Informe updated successfully", informe)
}

// DeleteInforme godoc
// @Summary Elimina una definición
// @Tags informes
// @Router /api/v1/informes/{id} [delete]
func (h *InformeHandler) DeleteInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := h.informeService.Delete(c.UserContext(), actor, id); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

// DuplicateInforme godoc
// @Summary Duplica una definición (incluidas plantillas)
// @Tags informes
// @Router /api/v1/informes/{id}/duplicar [post]
func (h *InformeHandler) DuplicateInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var req models.DuplicarRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.BadRequest(c, "Invalid JSON format", err)
		}
		if err := h.validator.ValidateStruct(&req); err != nil {
			return utils.HandleError(c, err)
		}
	}

	informe, err := h.informeService.Duplicate(c.UserContext(), actor, id, req.Nombre)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, "Informe duplicated successfully", informe)
}

// ToggleFavorite godoc
// @Summary Marca o desmarca una definición como favorita
// @Tags informes
// @Router /api/v1/informes/{id}/favorito [post]
func (h *InformeHandler) ToggleFavorite(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	informe, err := h.informeService.ToggleFavorite(c.UserContext(), actor, id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Favorite toggled successfully", informe)
}

// ExecuteInforme godoc
// @Summary Ejecuta una definición guardada
// @Tags informes
// @Param page query int false "Página" default(1)
// @Param limit query int false "Filas por página"
// @Router /api/v1/informes/{id}/ejecutar [post]
func (h *InformeHandler) ExecuteInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var req models.EjecucionRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid query parameters", err)
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.BadRequest(c, "Invalid JSON format", err)
		}
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return utils.HandleError(c, err)
	}

	result, err := h.informeService.Execute(c.UserContext(), actor, id, req.Page, req.Limit)
	if err != nil {
		h.logger.Warn("Informe execution failed",
			zap.String("informe_id", id.Hex()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err))
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Informe executed successfully", result)
}

// ExecuteAdHoc godoc
// @Summary Valida y ejecuta una definición sin guardarla
// @Tags informes
// @Router /api/v1/informes/ejecutar [post]
func (h *InformeHandler) ExecuteAdHoc(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}

	var req models.EjecucionAdHocRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid JSON format", err)
	}

	result, err := h.informeService.ExecuteAdHoc(c.UserContext(), actor, req.Definicion, req.Page, req.Limit)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Informe executed successfully", result)
}

// ExportInforme godoc
// @Summary Exporta el resultado completo de una definición
// @Tags informes
// @Param formato query string false "csv | xlsx | pdf" default(csv)
// @Router /api/v1/informes/{id}/exportar [get]
func (h *InformeHandler) ExportInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	formato := models.FormatoExportacion(strings.ToLower(c.Query("formato", string(models.FormatoCSV))))
	archivo, err := h.informeService.Export(c.UserContext(), actor, id, formato)
	if err != nil {
		return utils.HandleError(c, err)
	}

	c.Set(fiber.HeaderContentType, archivo.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", archivo.Nombre))
	return c.Status(fiber.StatusOK).Send(archivo.Contenido)
}

// SeedTemplates godoc
// @Summary Siembra las plantillas predefinidas en el tenant (idempotente)
// @Tags informes
// @Router /api/v1/informes/plantillas/seed [post]
func (h *InformeHandler) SeedTemplates(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}

	inserted, err := h.informeService.SeedTemplates(c.UserContext(), actor)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Templates seeded successfully", fiber.Map{"insertadas": inserted})
}
