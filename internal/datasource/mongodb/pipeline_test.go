package mongodb

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"Omerix_API_Informes/internal/datasource"
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/informes/compiler"
	"Omerix_API_Informes/internal/models"
)

type unknownStage struct{ compiler.Match }

func TestTranslate_GroupedPlan(t *testing.T) {
	stages := []compiler.Stage{
		compiler.Match{Predicates: []compiler.Predicate{
			{Path: "estado", Operator: catalog.OpNotEquals, Values: []interface{}{"anulada"}},
		}},
		compiler.Group{
			Keys: []compiler.GroupKey{{Key: "mes", Path: "fecha", Granularity: models.GranularidadMes}},
			Accumulators: []compiler.Accumulator{
				{Key: "totales.totalFactura", Path: "totales.totalFactura", Func: catalog.AggSum},
				{Key: "n", Path: "_id", Func: catalog.AggCount},
			},
		},
		compiler.Sort{Keys: []compiler.SortKey{{Field: "totales.totalFactura", Desc: true}, {Field: "mes"}}},
		compiler.Paginate{Skip: 20, Limit: 10},
	}

	tr, err := Translate(stages)
	require.NoError(t, err)

	expected := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "estado", Value: bson.D{{Key: "$ne", Value: "anulada"}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "c0", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m"},
				{Key: "date", Value: "$fecha"},
				{Key: "timezone", Value: "UTC"},
			}}}}}},
			{Key: "c1", Value: bson.D{{Key: "$sum", Value: "$totales.totalFactura"}}},
			{Key: "c2", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "c0", Value: "$_id.c0"},
			{Key: "c1", Value: 1},
			{Key: "c2", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "c1", Value: -1}, {Key: "c0", Value: 1}}}},
		{{Key: "$skip", Value: int64(20)}},
		{{Key: "$limit", Value: int64(10)}},
	}
	assert.Equal(t, expected, tr.Pipeline)
	assert.Equal(t, map[string]string{"c0": "mes", "c1": "totales.totalFactura", "c2": "n"}, tr.Keys)
}

func TestTranslate_UngroupedPlan(t *testing.T) {
	stages := []compiler.Stage{
		compiler.Sort{Keys: []compiler.SortKey{{Field: "stock.actual"}, {Field: compiler.IDField}}},
		compiler.Paginate{Skip: 0, Limit: 50},
		compiler.Project{Columns: []compiler.ProjectColumn{
			{Key: "sku", Path: "sku"},
			{Key: "alta", Path: "fechaCreacion", Granularity: models.GranularidadAnio},
		}},
	}

	tr, err := Translate(stages)
	require.NoError(t, err)

	expected := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "stock.actual", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: int64(50)}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "c0", Value: "$sku"},
			{Key: "c1", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y"},
				{Key: "date", Value: "$fechaCreacion"},
				{Key: "timezone", Value: "UTC"},
			}}}},
		}}},
	}
	assert.Equal(t, expected, tr.Pipeline)
	assert.Equal(t, map[string]string{"c0": "sku", "c1": "alta"}, tr.Keys)
}

func TestTranslate_UnsupportedStage(t *testing.T) {
	_, err := Translate([]compiler.Stage{unknownStage{}})
	assert.True(t, errors.Is(err, datasource.ErrUnsupportedStage))
}

func TestPredicateDoc(t *testing.T) {
	day := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	id := primitive.NewObjectID()

	tests := []struct {
		name     string
		pred     compiler.Predicate
		expected bson.D
	}{
		{
			name:     "equals",
			pred:     compiler.Predicate{Path: "clienteId", Operator: catalog.OpEquals, Values: []interface{}{id}},
			expected: bson.D{{Key: "clienteId", Value: id}},
		},
		{
			name:     "contains is case-insensitive and escaped",
			pred:     compiler.Predicate{Path: "clienteNombre", Operator: catalog.OpContains, Values: []interface{}{"A.C+"}},
			expected: bson.D{{Key: "clienteNombre", Value: primitive.Regex{Pattern: `A\.C\+`, Options: "i"}}},
		},
		{
			name:     "startsWith case-sensitive",
			pred:     compiler.Predicate{Path: "codigo", Operator: catalog.OpStartsWith, Values: []interface{}{"F24"}, CaseSensitive: true},
			expected: bson.D{{Key: "codigo", Value: primitive.Regex{Pattern: "^F24", Options: ""}}},
		},
		{
			name: "between with dates",
			pred: compiler.Predicate{Path: "fecha", Operator: catalog.OpBetween, Values: []interface{}{day, day.Add(time.Hour)}},
			expected: bson.D{{Key: "fecha", Value: bson.D{
				{Key: "$gte", Value: primitive.NewDateTimeFromTime(day)},
				{Key: "$lte", Value: primitive.NewDateTimeFromTime(day.Add(time.Hour))},
			}}},
		},
		{
			name:     "notIn",
			pred:     compiler.Predicate{Path: "estado", Operator: catalog.OpNotIn, Values: []interface{}{"anulada", "borrador"}},
			expected: bson.D{{Key: "estado", Value: bson.D{{Key: "$nin", Value: bson.A{"anulada", "borrador"}}}}},
		},
		{
			name:     "isNull",
			pred:     compiler.Predicate{Path: "fechaVencimiento", Operator: catalog.OpIsNull},
			expected: bson.D{{Key: "fechaVencimiento", Value: nil}},
		},
		{
			name:     "isNotNull",
			pred:     compiler.Predicate{Path: "fechaVencimiento", Operator: catalog.OpIsNotNull},
			expected: bson.D{{Key: "fechaVencimiento", Value: bson.D{{Key: "$ne", Value: nil}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, predicateDoc(tt.pred))
		})
	}
}

func TestMatchDoc_CombinesWithAnd(t *testing.T) {
	doc := matchDoc(compiler.Match{Predicates: []compiler.Predicate{
		{Path: "a", Operator: catalog.OpGt, Values: []interface{}{1.0}},
		{Path: "b", Operator: catalog.OpLt, Values: []interface{}{2.0}},
	}})

	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "a", Value: bson.D{{Key: "$gt", Value: 1.0}}}},
		bson.D{{Key: "b", Value: bson.D{{Key: "$lt", Value: 2.0}}}},
	}}}, doc)
	assert.Equal(t, bson.D{}, matchDoc(compiler.Match{}))
}

func TestDecodeRow(t *testing.T) {
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	row := decodeRow(bson.M{
		"c0": "2024-03",
		"c1": primitive.NewDateTimeFromTime(when),
		"c2": int32(4),
	}, map[string]string{"c0": "mes", "c1": "ultima", "c2": "n", "c3": "vacio"})

	assert.Equal(t, "2024-03", row["mes"])
	assert.Equal(t, when, row["ultima"])
	assert.Equal(t, int64(4), row["n"])
	assert.Contains(t, row, "vacio")
	assert.Nil(t, row["vacio"])
}

func TestClassify(t *testing.T) {
	stepDown := mongo.CommandError{Code: 189, Name: "PrimarySteppedDown"}
	labelled := mongo.CommandError{Code: 1, Labels: []string{"TransientTransactionError"}}
	syntax := mongo.CommandError{Code: 15998, Name: "FailedToParse"}

	assert.True(t, datasource.IsTransient(classify(fmt.Errorf("aggregate: %w", stepDown))))
	assert.True(t, datasource.IsTransient(classify(labelled)))
	assert.False(t, datasource.IsTransient(classify(syntax)))
	assert.False(t, datasource.IsTransient(classify(errors.New("boom"))))
}
