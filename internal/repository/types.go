package repository

import (
	"Omerix_API_Informes/internal/informes/catalog"
)

// InformeFilter filtros para el listado de informes
type InformeFilter struct {
	Modulo        *catalog.Module `json:"modulo,omitempty"`
	SoloFavoritos bool            `json:"favoritos,omitempty"`
	EsPlantilla   *bool           `json:"esPlantilla,omitempty"`
	Search        string          `json:"search,omitempty"`
}

// PaginationOptions opciones de paginación
type PaginationOptions struct {
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// Normalize aplica valores por defecto y el tamaño máximo de página
func (p PaginationOptions) Normalize(defaultSize, maxSize int) PaginationOptions {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}
