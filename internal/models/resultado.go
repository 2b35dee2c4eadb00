package models

import (
	"Omerix_API_Informes/internal/informes/catalog"
)

// Columna metadatos de una columna de salida, en el orden de selección
type Columna struct {
	Key          string              `json:"key"`
	Campo        string              `json:"campo"`
	Etiqueta     string              `json:"etiqueta"`
	Tipo         catalog.FieldType   `json:"tipo"`
	Agregacion   catalog.Aggregation `json:"agregacion,omitempty"`
	Granularidad Granularidad        `json:"granularidad,omitempty"`
}

// Paginacion metadatos de paginación de una ejecución
type Paginacion struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ResultadoInforme resultado de una ejecución. Nunca se persiste.
type ResultadoInforme struct {
	Datos      []map[string]interface{} `json:"datos"`
	Totales    map[string]interface{}   `json:"totales"`
	Paginacion Paginacion               `json:"paginacion"`
	Columnas   []Columna                `json:"columnas"`
}

// SugerenciaIA definición candidata devuelta por el servicio de lenguaje natural
type SugerenciaIA struct {
	Definicion  InformeSpec `json:"definicion"`
	Nombre      string      `json:"nombre,omitempty"`
	Confianza   float64     `json:"confianza"`
	Explicacion string      `json:"explicacion,omitempty"`
}

// GenerarInformeIARequest petición de generación por IA
type GenerarInformeIARequest struct {
	Modulo   catalog.Module `json:"modulo" validate:"required"`
	Prompt   string         `json:"prompt" validate:"required,min=5,max=1000"`
	Guardar  bool           `json:"guardar"`
	Ejecutar bool           `json:"ejecutar"`
}

// GenerarInformeIAResponse resultado de la generación por IA
type GenerarInformeIAResponse struct {
	Definicion  InformeSpec       `json:"definicion"`
	Confianza   float64           `json:"confianza"`
	Explicacion string            `json:"explicacion,omitempty"`
	Informe     *Informe          `json:"informe,omitempty"`
	Resultado   *ResultadoInforme `json:"resultado,omitempty"`
}
