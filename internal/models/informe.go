package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/informes/catalog"
)

// CampoSeleccionado columna de salida de un informe
type CampoSeleccionado struct {
	Campo        string              `json:"campo" bson:"campo" validate:"required"`
	Coleccion    string              `json:"coleccion,omitempty" bson:"coleccion,omitempty"`
	Agregacion   catalog.Aggregation `json:"agregacion,omitempty" bson:"agregacion,omitempty"`
	Alias        string              `json:"alias,omitempty" bson:"alias,omitempty"`
	Granularidad Granularidad        `json:"granularidad,omitempty" bson:"granularidad,omitempty" validate:"omitempty,oneof=day month year"`
}

// Key clave de salida de la columna
func (c CampoSeleccionado) Key() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Campo
}

// Filtro cláusula de filtro; todas las cláusulas se combinan con AND
type Filtro struct {
	Campo              string           `json:"campo" bson:"campo" validate:"required"`
	Coleccion          string           `json:"coleccion,omitempty" bson:"coleccion,omitempty"`
	Operador           catalog.Operator `json:"operador" bson:"operador" validate:"required"`
	Valor              interface{}      `json:"valor,omitempty" bson:"valor,omitempty"`
	Valores            []interface{}    `json:"valores,omitempty" bson:"valores,omitempty"`
	SensibleMayusculas bool             `json:"sensibleMayusculas,omitempty" bson:"sensible_mayusculas,omitempty"`
}

// Orden criterio de ordenación sobre una clave de salida
type Orden struct {
	Campo     string    `json:"campo" bson:"campo" validate:"required"`
	Direccion Direccion `json:"direccion,omitempty" bson:"direccion,omitempty" validate:"omitempty,oneof=asc desc"`
}

// InformeSpec parte declarativa de un informe: qué datos mostrar
type InformeSpec struct {
	Modulo        catalog.Module      `json:"modulo" bson:"modulo" validate:"required"`
	ColeccionBase string              `json:"coleccionBase" bson:"coleccion_base" validate:"required"`
	Campos        []CampoSeleccionado `json:"campos" bson:"campos" validate:"required,min=1,dive"`
	Filtros       []Filtro            `json:"filtros,omitempty" bson:"filtros,omitempty" validate:"dive"`
	Agrupacion    []string            `json:"agrupacion,omitempty" bson:"agrupacion,omitempty"`
	Ordenacion    []Orden             `json:"ordenacion,omitempty" bson:"ordenacion,omitempty" validate:"dive"`
	TipoGrafico   TipoGrafico         `json:"tipoGrafico,omitempty" bson:"tipo_grafico,omitempty" validate:"omitempty,oneof=tabla barras lineas sectores area"`
}

// Informe definición persistida de un informe
type Informe struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID      primitive.ObjectID `json:"empresaId" bson:"tenant_id"`
	Nombre        string             `json:"nombre" bson:"nombre"`
	Descripcion   string             `json:"descripcion,omitempty" bson:"descripcion,omitempty"`
	InformeSpec   `bson:",inline"`
	EsPlantilla   bool               `json:"esPlantilla" bson:"es_plantilla"`
	Favorito      bool               `json:"favorito" bson:"favorito"`
	PropietarioID primitive.ObjectID `json:"propietarioId" bson:"propietario_id"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Clone copia profunda de la parte declarativa
func (s InformeSpec) Clone() InformeSpec {
	out := s
	out.Campos = append([]CampoSeleccionado(nil), s.Campos...)
	out.Agrupacion = append([]string(nil), s.Agrupacion...)
	out.Ordenacion = append([]Orden(nil), s.Ordenacion...)
	if s.Filtros != nil {
		out.Filtros = make([]Filtro, len(s.Filtros))
		for i, f := range s.Filtros {
			f.Valores = append([]interface{}(nil), f.Valores...)
			out.Filtros[i] = f
		}
	}
	return out
}

// InformeRequest cuerpo de creación/actualización de un informe
type InformeRequest struct {
	Nombre      string `json:"nombre" validate:"required,min=3,max=120"`
	Descripcion string `json:"descripcion,omitempty" validate:"max=500"`
	InformeSpec
}

// DuplicarRequest cuerpo opcional al duplicar
type DuplicarRequest struct {
	Nombre string `json:"nombre,omitempty" validate:"omitempty,min=3,max=120"`
}

// EjecucionRequest parámetros de ejecución
type EjecucionRequest struct {
	Page  int `json:"page" query:"page" validate:"omitempty,min=1"`
	Limit int `json:"limit" query:"limit" validate:"omitempty,min=1"`
}

// EjecucionAdHocRequest ejecución de un informe no guardado
type EjecucionAdHocRequest struct {
	EjecucionRequest
	Definicion InformeSpec `json:"definicion"`
}
