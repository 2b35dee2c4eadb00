package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DataResponse respuesta con datos
type DataResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorBody respuesta de error simplificada
type ErrorBody struct {
	Success   bool                    `json:"success"`
	Message   string                  `json:"message"`
	Error     string                  `json:"error,omitempty"`
	Errors    []ValidationErrorDetail `json:"errors,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// PaginationInfo información de paginación
type PaginationInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse respuesta con paginación
type PaginatedResponse struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message,omitempty"`
	Data       interface{}    `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SuccessResponse crea una respuesta exitosa
func SuccessResponse(c *fiber.Ctx, statusCode int, message string, data interface{}) error {
	return c.Status(statusCode).JSON(DataResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// ErrorResponse crea una respuesta de error
func ErrorResponse(c *fiber.Ctx, statusCode int, message string, errorDetail string) error {
	return c.Status(statusCode).JSON(ErrorBody{
		Success:   false,
		Message:   message,
		Error:     errorDetail,
		Timestamp: time.Now(),
	})
}

// Paginated respuesta paginada
func Paginated(c *fiber.Ctx, message string, data interface{}, pagination PaginationInfo) error {
	return c.Status(fiber.StatusOK).JSON(PaginatedResponse{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
		Timestamp:  time.Now(),
	})
}

// HandleError traduce cualquier error del dominio a su respuesta HTTP.
// Los errores de validación conservan la lista completa de campos.
func HandleError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)

	if ve, ok := AsValidationError(err); ok {
		return c.Status(status).JSON(ErrorBody{
			Success:   false,
			Message:   ve.Message,
			Errors:    ve.Errors,
			Timestamp: time.Now(),
		})
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ErrorResponse(c, status, apiErr.Message, apiErr.Details)
	}

	if status == fiber.StatusInternalServerError {
		return ErrorResponse(c, status, "Internal server error", "")
	}
	return ErrorResponse(c, status, err.Error(), "")
}

// BadRequest respuesta 400
func BadRequest(c *fiber.Ctx, message string, err error) error {
	errorDetail := ""
	if err != nil {
		errorDetail = err.Error()
	}
	return ErrorResponse(c, fiber.StatusBadRequest, message, errorDetail)
}

// Unauthorized respuesta 401
func Unauthorized(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusUnauthorized, message, "")
}

// OK respuesta 200 exitosa
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return SuccessResponse(c, fiber.StatusOK, message, data)
}

// Created respuesta 201 creado
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return SuccessResponse(c, fiber.StatusCreated, message, data)
}

// NoContent respuesta 204 sin contenido
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
