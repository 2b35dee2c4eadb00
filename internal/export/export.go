// Package export convierte resultados de informes a ficheros descargables.
package export

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/utils"
)

// Renderer escribe un resultado en un formato concreto
type Renderer interface {
	Format() models.FormatoExportacion
	ContentType() string
	Render(w io.Writer, titulo string, result *models.ResultadoInforme) error
}

// Archivo fichero generado
type Archivo struct {
	Nombre      string
	ContentType string
	Contenido   []byte
}

// Registry renderizadores disponibles por formato
type Registry struct {
	renderers map[models.FormatoExportacion]Renderer
}

// NewRegistry crea un registro con los renderizadores indicados
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[models.FormatoExportacion]Renderer, len(renderers))}
	for _, rd := range renderers {
		r.renderers[rd.Format()] = rd
	}
	return r
}

// Default registro con CSV y Excel
func Default() *Registry {
	return NewRegistry(NewCSVRenderer(), NewExcelRenderer())
}

// Supports indica si el formato tiene renderizador
func (r *Registry) Supports(f models.FormatoExportacion) bool {
	_, ok := r.renderers[f]
	return ok
}

// Render genera el fichero. Un formato sin renderizador devuelve utils.ErrUnsupported.
func (r *Registry) Render(f models.FormatoExportacion, titulo string, result *models.ResultadoInforme) (*Archivo, error) {
	rd, ok := r.renderers[f]
	if !ok {
		return nil, fmt.Errorf("%w: export format %q", utils.ErrUnsupported, f)
	}

	var buf bytes.Buffer
	if err := rd.Render(&buf, titulo, result); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", f, err)
	}

	return &Archivo{
		Nombre:      fileName(titulo, f),
		ContentType: rd.ContentType(),
		Contenido:   buf.Bytes(),
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func fileName(titulo string, f models.FormatoExportacion) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(titulo), "_"), "_")
	if base == "" {
		base = "informe"
	}
	return base + "." + string(f)
}

// headers etiquetas de columna en el orden de selección
func headers(result *models.ResultadoInforme) []string {
	out := make([]string, len(result.Columnas))
	for i, c := range result.Columnas {
		out[i] = utils.DefaultString(c.Etiqueta, c.Key)
		if c.Agregacion != "" && c.Agregacion != "none" {
			out[i] = fmt.Sprintf("%s (%s)", out[i], c.Agregacion)
		}
	}
	return out
}

// totalsRow fila de totales; nil si no hay columnas agregadas
func totalsRow(result *models.ResultadoInforme) []interface{} {
	if len(result.Totales) == 0 {
		return nil
	}
	row := make([]interface{}, len(result.Columnas))
	for i, c := range result.Columnas {
		if v, ok := result.Totales[c.Key]; ok {
			row[i] = v
		}
	}
	if len(row) > 0 && row[0] == nil {
		row[0] = "Total"
	}
	return row
}

// formatValue representación textual estable de un valor de celda
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int32, int64:
		return fmt.Sprintf("%d", x)
	case bool:
		if x {
			return "sí"
		}
		return "no"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case primitive.ObjectID:
		return x.Hex()
	}
	return fmt.Sprint(v)
}
