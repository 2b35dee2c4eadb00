package mongodb

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"Omerix_API_Informes/internal/datasource"
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/informes/compiler"
	"Omerix_API_Informes/internal/models"
)

var dateFormats = map[models.Granularidad]string{
	models.GranularidadDia:  "%Y-%m-%d",
	models.GranularidadMes:  "%Y-%m",
	models.GranularidadAnio: "%Y",
}

// aliases asigna nombres c0..cN a las claves de salida: en $group los nombres
// no pueden contener puntos y en $project crearían documentos anidados.
type aliases struct {
	byKey map[string]string
	order []string
}

func newAliases() *aliases {
	return &aliases{byKey: make(map[string]string)}
}

func (a *aliases) of(key string) string {
	if alias, ok := a.byKey[key]; ok {
		return alias
	}
	alias := fmt.Sprintf("c%d", len(a.order))
	a.byKey[key] = alias
	a.order = append(a.order, key)
	return alias
}

// Translation pipeline de Mongo y la forma de volver a las claves de salida
type Translation struct {
	Pipeline mongo.Pipeline
	// Keys claves de salida por alias; vacío si el plan devuelve documentos sin proyectar
	Keys map[string]string
}

// Translate traduce las etapas abstractas a un pipeline de agregación
func Translate(stages []compiler.Stage) (*Translation, error) {
	a := newAliases()
	pipeline := mongo.Pipeline{}
	grouped := false

	for _, st := range stages {
		switch s := st.(type) {
		case compiler.Match:
			pipeline = append(pipeline, bson.D{{Key: "$match", Value: matchDoc(s)}})
		case compiler.Group:
			pipeline = append(pipeline, groupStages(s, a)...)
			grouped = true
		case compiler.Sort:
			sortDoc := bson.D{}
			for _, k := range s.Keys {
				field := k.Field
				if grouped {
					field = a.of(k.Field)
				}
				dir := 1
				if k.Desc {
					dir = -1
				}
				sortDoc = append(sortDoc, bson.E{Key: field, Value: dir})
			}
			if len(sortDoc) > 0 {
				pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sortDoc}})
			}
		case compiler.Paginate:
			if s.Skip > 0 {
				pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(s.Skip)}})
			}
			pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(s.Limit)}})
		case compiler.Project:
			proj := bson.D{{Key: "_id", Value: 0}}
			for _, c := range s.Columns {
				proj = append(proj, bson.E{Key: a.of(c.Key), Value: valueExpr(c.Path, c.Granularity)})
			}
			pipeline = append(pipeline, bson.D{{Key: "$project", Value: proj}})
		default:
			return nil, fmt.Errorf("%w: %s", datasource.ErrUnsupportedStage, compiler.Name(st))
		}
	}

	keys := make(map[string]string, len(a.order))
	for _, key := range a.order {
		keys[a.byKey[key]] = key
	}
	return &Translation{Pipeline: pipeline, Keys: keys}, nil
}

func valueExpr(path string, g models.Granularidad) interface{} {
	if format, ok := dateFormats[g]; ok {
		return bson.D{{Key: "$dateToString", Value: bson.D{
			{Key: "format", Value: format},
			{Key: "date", Value: "$" + path},
			{Key: "timezone", Value: "UTC"},
		}}}
	}
	return "$" + path
}

func groupStages(g compiler.Group, a *aliases) []bson.D {
	var id interface{}
	if len(g.Keys) > 0 {
		idDoc := bson.D{}
		for _, k := range g.Keys {
			idDoc = append(idDoc, bson.E{Key: a.of(k.Key), Value: valueExpr(k.Path, k.Granularity)})
		}
		id = idDoc
	}

	group := bson.D{{Key: "_id", Value: id}}
	for _, acc := range g.Accumulators {
		group = append(group, bson.E{Key: a.of(acc.Key), Value: accumulatorExpr(acc)})
	}

	// aplanar _id para que todas las columnas queden al mismo nivel
	proj := bson.D{{Key: "_id", Value: 0}}
	for _, k := range g.Keys {
		alias := a.of(k.Key)
		proj = append(proj, bson.E{Key: alias, Value: "$_id." + alias})
	}
	for _, acc := range g.Accumulators {
		proj = append(proj, bson.E{Key: a.of(acc.Key), Value: 1})
	}

	return []bson.D{
		{{Key: "$group", Value: group}},
		{{Key: "$project", Value: proj}},
	}
}

func accumulatorExpr(acc compiler.Accumulator) bson.D {
	switch acc.Func {
	case catalog.AggSum:
		return bson.D{{Key: "$sum", Value: "$" + acc.Path}}
	case catalog.AggAvg:
		return bson.D{{Key: "$avg", Value: "$" + acc.Path}}
	case catalog.AggMin:
		return bson.D{{Key: "$min", Value: "$" + acc.Path}}
	case catalog.AggMax:
		return bson.D{{Key: "$max", Value: "$" + acc.Path}}
	default:
		return bson.D{{Key: "$sum", Value: 1}}
	}
}

func matchDoc(m compiler.Match) bson.D {
	conds := make(bson.A, 0, len(m.Predicates))
	for _, p := range m.Predicates {
		conds = append(conds, predicateDoc(p))
	}
	switch len(conds) {
	case 0:
		return bson.D{}
	case 1:
		return conds[0].(bson.D)
	}
	return bson.D{{Key: "$and", Value: conds}}
}

func predicateDoc(p compiler.Predicate) bson.D {
	cond := func(op string, v interface{}) bson.D {
		return bson.D{{Key: p.Path, Value: bson.D{{Key: op, Value: v}}}}
	}
	first := func() interface{} {
		if len(p.Values) == 0 {
			return nil
		}
		return bsonValue(p.Values[0])
	}

	switch p.Operator {
	case catalog.OpEquals:
		return bson.D{{Key: p.Path, Value: first()}}
	case catalog.OpNotEquals:
		return cond("$ne", first())
	case catalog.OpContains:
		return bson.D{{Key: p.Path, Value: regex(regexp.QuoteMeta(first().(string)), p.CaseSensitive)}}
	case catalog.OpStartsWith:
		return bson.D{{Key: p.Path, Value: regex("^"+regexp.QuoteMeta(first().(string)), p.CaseSensitive)}}
	case catalog.OpGt:
		return cond("$gt", first())
	case catalog.OpGte:
		return cond("$gte", first())
	case catalog.OpLt:
		return cond("$lt", first())
	case catalog.OpLte:
		return cond("$lte", first())
	case catalog.OpBetween:
		return bson.D{{Key: p.Path, Value: bson.D{
			{Key: "$gte", Value: bsonValue(p.Values[0])},
			{Key: "$lte", Value: bsonValue(p.Values[1])},
		}}}
	case catalog.OpIn:
		return cond("$in", bsonValues(p.Values))
	case catalog.OpNotIn:
		return cond("$nin", bsonValues(p.Values))
	case catalog.OpIsNull:
		// {campo: null} coincide con null y con campo ausente
		return bson.D{{Key: p.Path, Value: nil}}
	default:
		return cond("$ne", nil)
	}
}

func regex(pattern string, caseSensitive bool) primitive.Regex {
	options := "i"
	if caseSensitive {
		options = ""
	}
	return primitive.Regex{Pattern: pattern, Options: options}
}

func bsonValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return primitive.NewDateTimeFromTime(t)
	}
	return v
}

func bsonValues(values []interface{}) bson.A {
	out := make(bson.A, len(values))
	for i, v := range values {
		out[i] = bsonValue(v)
	}
	return out
}
