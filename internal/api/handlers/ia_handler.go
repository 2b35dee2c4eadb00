package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/api/middleware"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/services"
	"Omerix_API_Informes/internal/utils"
)

// IAHandler generación de informes a partir de lenguaje natural
type IAHandler struct {
	aiService services.AIIntakeService
	validator *utils.Validator
	logger    *zap.Logger
}

// NewIAHandler crea el handler de IA
func NewIAHandler(aiService services.AIIntakeService, validator *utils.Validator, logger *zap.Logger) *IAHandler {
	return &IAHandler{
		aiService: aiService,
		validator: validator,
		logger:    logger.With(zap.String("component", "ia_handler")),
	}
}

// GenerateInforme godoc
// @Summary Genera una definición a partir de un texto libre
// @Description La definición generada se valida igual que la de un usuario antes de guardarse o ejecutarse
// @Tags informes
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/informes/ia/generar [post]
func (h *IAHandler) GenerateInforme(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return utils.Unauthorized(c, "User not authenticated")
	}

	var req models.GenerarInformeIARequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid JSON format", err)
	}
	req.Prompt = utils.SanitizeInput(req.Prompt)
	if err := h.validator.ValidateStruct(&req); err != nil {
		return utils.HandleError(c, err)
	}

	resp, err := h.aiService.Generate(c.UserContext(), actor, &req)
	if err != nil {
		h.logger.Info("AI generation rejected",
			zap.String("tenant_id", actor.TenantID.Hex()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err))
		return utils.HandleError(c, err)
	}

	status := fiber.StatusOK
	if resp.Informe != nil {
		status = fiber.StatusCreated
	}
	return utils.SuccessResponse(c, status, "Informe generated successfully", resp)
}
