package export

import (
	"encoding/csv"
	"io"

	"Omerix_API_Informes/internal/models"
)

// CSVRenderer exporta a CSV separado por punto y coma
type CSVRenderer struct {
	Comma rune
}

// NewCSVRenderer renderizador CSV con separador ';'
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{Comma: ';'}
}

func (r *CSVRenderer) Format() models.FormatoExportacion { return models.FormatoCSV }

func (r *CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }

// Render escribe cabecera, filas y, si hay agregados, la fila de totales
func (r *CSVRenderer) Render(w io.Writer, _ string, result *models.ResultadoInforme) error {
	cw := csv.NewWriter(w)
	cw.Comma = r.Comma

	if err := cw.Write(headers(result)); err != nil {
		return err
	}

	record := make([]string, len(result.Columnas))
	for _, row := range result.Datos {
		for i, c := range result.Columnas {
			record[i] = formatValue(row[c.Key])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	if totals := totalsRow(result); totals != nil {
		for i, v := range totals {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
