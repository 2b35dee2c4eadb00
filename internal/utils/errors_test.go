package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", NewValidationErrors([]ValidationErrorDetail{{Field: "campos"}}), http.StatusUnprocessableEntity},
		{"not found", NewNotFoundError("informe", "x"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("loading: %w", NewNotFoundError("informe", "x")), http.StatusNotFound},
		{"timeout", &TimeoutError{Op: "rows", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"execution", &ExecutionError{Op: "rows", Attempts: 3, Err: errors.New("down")}, http.StatusBadGateway},
		{"unsupported", fmt.Errorf("%w: pdf", ErrUnsupported), http.StatusNotImplemented},
		{"rate limited", fmt.Errorf("%w: slow down", ErrRateLimited), http.StatusTooManyRequests},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("%w: template", ErrForbidden), http.StatusForbidden},
		{"api error", NewBadRequestError("Invalid id"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusFor(tt.err))
		})
	}
}

func TestExecutionErrors_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := &ExecutionError{Op: "count", Attempts: 2, Err: cause}
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrExecution))
	assert.False(t, errors.Is(err, ErrTimeout))

	timeout := &TimeoutError{Op: "rows", Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))
	assert.True(t, errors.Is(timeout, ErrTimeout))
}

func TestHandleError(t *testing.T) {
	app := fiber.New()
	app.Get("/validation", func(c *fiber.Ctx) error {
		return HandleError(c, NewValidationErrors([]ValidationErrorDetail{
			{Field: "campos[0].campo", Message: "unknown field"},
			{Field: "filtros[1].operador", Message: "operator not allowed"},
		}))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return HandleError(c, errors.New("mongo: connection string secret"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/validation", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body ErrorBody
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.False(t, body.Success)
	require.Len(t, body.Errors, 2)
	assert.Equal(t, "filtros[1].operador", body.Errors[1].Field)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.NotContains(t, string(raw), "secret")
}

func TestFieldPath(t *testing.T) {
	tests := []struct {
		namespace string
		expected  string
	}{
		{"InformeRequest.nombre", "nombre"},
		{"InformeRequest.InformeSpec.campos[0].campo", "campos[0].campo"},
		{"GenerarInformeIARequest.prompt", "prompt"},
	}
	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.expected, fieldPath(tt.namespace))
		})
	}
}

func TestValidateStruct_ReportsJSONNames(t *testing.T) {
	type payload struct {
		Nombre string `json:"nombre" validate:"required,min=3"`
		Limite int    `json:"limite" validate:"gte=1"`
	}

	err := NewValidator().ValidateStruct(payload{Nombre: "ab"})
	require.Error(t, err)

	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.True(t, verr.Has("nombre"))
	assert.True(t, verr.Has("limite"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "ventas por mes", SanitizeInput("  ventas\x00 por mes\x07 "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "facturación", Truncate("facturación", 11))
	assert.Equal(t, "factu...", Truncate("facturación mensual", 5))
	assert.Equal(t, "defecto", DefaultString("  ", "defecto"))
}
