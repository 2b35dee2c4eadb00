// Package aiclient es el cliente HTTP del servicio externo que interpreta
// peticiones en lenguaje natural y devuelve definiciones de informe candidatas.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client cliente del servicio de interpretación
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	UserAgent  string
}

// ClientConfig configuración del cliente
type ClientConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// NewClient crea un nuevo cliente
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}

	if config.UserAgent == "" {
		config.UserAgent = "InformesAIClient/1.0"
	}

	return &Client{
		BaseURL:   config.BaseURL,
		Token:     config.Token,
		UserAgent: config.UserAgent,
		HTTPClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Response respuesta genérica de la API
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// InterpretRequest petición en lenguaje natural
type InterpretRequest struct {
	TenantID string                   `json:"tenant_id"`
	Modulo   string                   `json:"modulo"`
	Prompt   string                   `json:"prompt"`
	Campos   []map[string]interface{} `json:"campos,omitempty"`
}

// InterpretResponse candidata sin validar: Definicion es el documento tal cual
// lo produjo el servicio.
type InterpretResponse struct {
	Definicion  json.RawMessage `json:"definicion"`
	Nombre      string          `json:"nombre,omitempty"`
	Confianza   float64         `json:"confianza"`
	Explicacion string          `json:"explicacion,omitempty"`
}

// APIError error devuelto por el servicio remoto
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// makeRequest realiza una petición HTTP
func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*Response, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var response Response
	if err := json.Unmarshal(respBody, &response); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := response.Message
		if msg == "" {
			msg = response.Error
		}
		return &response, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &response, nil
}

// Interpret pide al servicio una definición candidata
func (c *Client) Interpret(ctx context.Context, req *InterpretRequest) (*InterpretResponse, error) {
	response, err := c.makeRequest(ctx, http.MethodPost, "/api/v1/informes/interpretar", req)
	if err != nil {
		return nil, err
	}

	var result InterpretResponse
	if err := json.Unmarshal(response.Data, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling interpret response: %w", err)
	}

	return &result, nil
}

// Health verifica el estado del servicio
func (c *Client) Health(ctx context.Context) error {
	_, err := c.makeRequest(ctx, http.MethodGet, "/health", nil)
	return err
}
