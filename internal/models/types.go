package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TipoGrafico representa la visualización asociada a un informe
type TipoGrafico string

const (
	TipoGraficoTabla    TipoGrafico = "tabla"
	TipoGraficoBarras   TipoGrafico = "barras"
	TipoGraficoLineas   TipoGrafico = "lineas"
	TipoGraficoSectores TipoGrafico = "sectores"
	TipoGraficoArea     TipoGrafico = "area"
)

// Granularidad truncado de fechas al agrupar
type Granularidad string

const (
	GranularidadNinguna Granularidad = ""
	GranularidadDia     Granularidad = "day"
	GranularidadMes     Granularidad = "month"
	GranularidadAnio    Granularidad = "year"
)

// Direccion sentido de ordenación
type Direccion string

const (
	DireccionAsc  Direccion = "asc"
	DireccionDesc Direccion = "desc"
)

// FormatoExportacion formatos aceptados por el colaborador de exportación
type FormatoExportacion string

const (
	FormatoCSV   FormatoExportacion = "csv"
	FormatoExcel FormatoExportacion = "xlsx"
	FormatoPDF   FormatoExportacion = "pdf"
)

// Actor identidad del llamante, resuelta por el middleware de autenticación
type Actor struct {
	TenantID primitive.ObjectID
	UserID   primitive.ObjectID
}
