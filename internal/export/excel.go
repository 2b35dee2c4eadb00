package export

import (
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"Omerix_API_Informes/internal/models"
)

const sheetName = "Informe"

// ExcelRenderer exporta a XLSX con excelize
type ExcelRenderer struct{}

// NewExcelRenderer renderizador XLSX
func NewExcelRenderer() *ExcelRenderer {
	return &ExcelRenderer{}
}

func (r *ExcelRenderer) Format() models.FormatoExportacion { return models.FormatoExcel }

func (r *ExcelRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render escribe título, cabecera en negrita, filas y totales
func (r *ExcelRenderer) Render(w io.Writer, titulo string, result *models.ResultadoInforme) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(sheetName, "A1", titulo); err != nil {
		return err
	}

	rowIdx := 3
	if err := writeRow(f, rowIdx, toInterfaces(headers(result))); err != nil {
		return err
	}
	if err := styleRow(f, rowIdx, len(result.Columnas), bold); err != nil {
		return err
	}

	for _, row := range result.Datos {
		rowIdx++
		values := make([]interface{}, len(result.Columnas))
		for i, c := range result.Columnas {
			values[i] = cellValue(row[c.Key])
		}
		if err := writeRow(f, rowIdx, values); err != nil {
			return err
		}
	}

	if totals := totalsRow(result); totals != nil {
		rowIdx++
		for i, v := range totals {
			totals[i] = cellValue(v)
		}
		if err := writeRow(f, rowIdx, totals); err != nil {
			return err
		}
		if err := styleRow(f, rowIdx, len(result.Columnas), bold); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

func styleRow(f *excelize.File, row, cols, style int) error {
	if cols == 0 {
		return nil
	}
	from, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, from, to, style)
}

// cellValue deja números y fechas con su tipo nativo en la hoja
func cellValue(v interface{}) interface{} {
	switch v.(type) {
	case float64, float32, int, int32, int64, time.Time, nil:
		return v
	}
	return formatValue(v)
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
