package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/informes/catalog"
)

const dateOnlyLayout = "2006-01-02"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// fecha instante ya convertido y si venía como fecha sin hora
type fecha struct {
	t        time.Time
	dateOnly bool
}

// endOfDay último milisegundo del día UTC
func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Millisecond)
}

func parseDate(v interface{}) (fecha, error) {
	switch x := v.(type) {
	case time.Time:
		return fecha{t: x.UTC()}, nil
	case primitive.DateTime:
		return fecha{t: x.Time().UTC()}, nil
	case string:
		s := strings.TrimSpace(x)
		if t, err := time.ParseInLocation(dateOnlyLayout, s, time.UTC); err == nil {
			return fecha{t: t, dateOnly: true}, nil
		}
		for _, layout := range dateTimeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return fecha{t: t.UTC()}, nil
			}
		}
		return fecha{}, fmt.Errorf("%q is not an ISO-8601 date", x)
	}
	return fecha{}, fmt.Errorf("expected an ISO-8601 date, got %T", v)
}

func parseNumber(v interface{}) (float64, error) {
	f, err := rawNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", v)
	}
	return f, nil
}

func rawNumber(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

func parseBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", x)
		}
		return b, nil
	}
	return false, fmt.Errorf("expected a boolean, got %T", v)
}

func parseReference(v interface{}) (primitive.ObjectID, error) {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x, nil
	case string:
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(x))
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("%q is not a valid identifier", x)
		}
		return id, nil
	}
	return primitive.NilObjectID, fmt.Errorf("expected an identifier, got %T", v)
}

// coerce convierte un valor crudo al tipo lógico del campo.
// Las fechas se devuelven como fecha para poder ajustar cotas superiores.
func coerce(field *catalog.FieldDefinition, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("value is required")
	}

	switch field.Type {
	case catalog.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		return s, nil
	case catalog.TypeNumber:
		return parseNumber(v)
	case catalog.TypeDate:
		return parseDate(v)
	case catalog.TypeBoolean:
		return parseBool(v)
	case catalog.TypeReference:
		return parseReference(v)
	case catalog.TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		if !field.HasEnumValue(s) {
			return nil, fmt.Errorf("%q is not one of: %s", s, strings.Join(field.EnumValues, ", "))
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", field.Type)
}

// less compara dos valores ya convertidos del mismo tipo
func less(a, b interface{}) bool {
	switch x := a.(type) {
	case float64:
		return x < b.(float64)
	case fecha:
		return x.t.Before(b.(fecha).t)
	}
	return false
}

// rawValues normaliza valor/valores a una lista. Un valor que ya es un array
// JSON se acepta como lista.
func rawValues(valor interface{}, valores []interface{}) []interface{} {
	if len(valores) > 0 {
		return valores
	}
	switch x := valor.(type) {
	case nil:
		return nil
	case []interface{}:
		return x
	case primitive.A:
		return []interface{}(x)
	case []string:
		out := make([]interface{}, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []float64:
		out := make([]interface{}, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out
	case []int:
		out := make([]interface{}, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out
	}
	return []interface{}{valor}
}
