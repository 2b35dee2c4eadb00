// Package memory es un origen de datos en memoria que evalúa los planes con
// la misma semántica que el pipeline de MongoDB. Lo usan los tests del motor
// y de los servicios.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/datasource"
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/informes/compiler"
	"Omerix_API_Informes/internal/models"
)

// Store documentos por tenant y colección
type Store struct {
	mu      sync.RWMutex
	tenants map[primitive.ObjectID]map[string][]map[string]interface{}
}

// New crea un almacén vacío
func New() *Store {
	return &Store{tenants: make(map[primitive.ObjectID]map[string][]map[string]interface{})}
}

// Insert añade documentos a la colección del tenant. Los documentos sin _id reciben uno.
func (s *Store) Insert(tenantID primitive.ObjectID, coleccion string, docs ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	colls, ok := s.tenants[tenantID]
	if !ok {
		colls = make(map[string][]map[string]interface{})
		s.tenants[tenantID] = colls
	}
	for _, d := range docs {
		if _, ok := d[compiler.IDField]; !ok {
			d[compiler.IDField] = primitive.NewObjectID()
		}
		colls[coleccion] = append(colls[coleccion], d)
	}
}

// ForTenant devuelve la vista del tenant
func (s *Store) ForTenant(_ context.Context, tenantID primitive.ObjectID) (datasource.Source, error) {
	if tenantID.IsZero() {
		return nil, errors.New("tenant id is required")
	}
	return &Source{store: s, tenant: tenantID}, nil
}

// Source vista de un único tenant
type Source struct {
	store  *Store
	tenant primitive.ObjectID
}

func (s *Source) snapshot(coleccion string) []map[string]interface{} {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	docs := s.store.tenants[s.tenant][coleccion]
	out := make([]map[string]interface{}, len(docs))
	copy(out, docs)
	return out
}

// Aggregate evalúa las etapas sobre una copia de la colección
func (s *Source) Aggregate(ctx context.Context, coleccion string, stages []compiler.Stage) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := run(s.snapshot(coleccion), stages)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		row := make(map[string]interface{}, len(r))
		for k, v := range r {
			row[k] = v
		}
		out[i] = row
	}
	return out, nil
}

// Count evalúa las etapas y cuenta el resultado
func (s *Source) Count(ctx context.Context, coleccion string, stages []compiler.Stage) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rows, err := run(s.snapshot(coleccion), stages)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func run(docs []map[string]interface{}, stages []compiler.Stage) ([]map[string]interface{}, error) {
	for _, st := range stages {
		switch s := st.(type) {
		case compiler.Match:
			docs = match(docs, s)
		case compiler.Group:
			docs = group(docs, s)
		case compiler.Sort:
			sortRows(docs, s)
		case compiler.Paginate:
			docs = paginate(docs, s)
		case compiler.Project:
			docs = project(docs, s)
		default:
			return nil, fmt.Errorf("%w: %s", datasource.ErrUnsupportedStage, compiler.Name(st))
		}
	}
	return docs, nil
}

func match(docs []map[string]interface{}, m compiler.Match) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		ok := true
		for _, p := range m.Predicates {
			if !evaluate(d, p) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func evaluate(doc map[string]interface{}, p compiler.Predicate) bool {
	v, present := datasource.Lookup(doc, p.Path)
	if present && v == nil {
		present = false
	}

	switch p.Operator {
	case catalog.OpIsNull:
		return !present
	case catalog.OpIsNotNull:
		return present
	case catalog.OpNotEquals:
		return !present || !equal(v, p.Values[0])
	case catalog.OpNotIn:
		return !present || !anyEqual(v, p.Values)
	}

	if !present {
		return false
	}

	switch p.Operator {
	case catalog.OpEquals:
		return equal(v, p.Values[0])
	case catalog.OpIn:
		return anyEqual(v, p.Values)
	case catalog.OpContains, catalog.OpStartsWith:
		s, ok := v.(string)
		if !ok {
			return false
		}
		needle := p.Values[0].(string)
		if !p.CaseSensitive {
			s, needle = strings.ToLower(s), strings.ToLower(needle)
		}
		if p.Operator == catalog.OpContains {
			return strings.Contains(s, needle)
		}
		return strings.HasPrefix(s, needle)
	case catalog.OpGt:
		c, ok := compare(v, p.Values[0])
		return ok && c > 0
	case catalog.OpGte:
		c, ok := compare(v, p.Values[0])
		return ok && c >= 0
	case catalog.OpLt:
		c, ok := compare(v, p.Values[0])
		return ok && c < 0
	case catalog.OpLte:
		c, ok := compare(v, p.Values[0])
		return ok && c <= 0
	case catalog.OpBetween:
		lo, ok1 := compare(v, p.Values[0])
		hi, ok2 := compare(v, p.Values[1])
		return ok1 && ok2 && lo >= 0 && hi <= 0
	}
	return false
}

func anyEqual(v interface{}, values []interface{}) bool {
	for _, want := range values {
		if equal(v, want) {
			return true
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	c, ok := compare(a, b)
	return ok && c == 0
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func asTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case primitive.DateTime:
		return x.Time(), true
	}
	return time.Time{}, false
}

// compare ordena dos valores del mismo tipo lógico; ok es false si no son comparables
func compare(a, b interface{}) (int, bool) {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if ta, ok := asTime(a); ok {
		tb, ok := asTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case primitive.ObjectID:
		y, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x[:], y[:]), true
	}
	return 0, false
}

// sortOrder orden total para Sort: ausente/nil primero, luego por tipo
func sortOrder(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

func truncate(v interface{}, g models.Granularidad) interface{} {
	t, ok := asTime(v)
	if !ok {
		return nil
	}
	t = t.UTC()
	switch g {
	case models.GranularidadDia:
		return t.Format("2006-01-02")
	case models.GranularidadMes:
		return t.Format("2006-01")
	case models.GranularidadAnio:
		return t.Format("2006")
	}
	return v
}

func value(doc map[string]interface{}, path string, g models.Granularidad) interface{} {
	v, _ := datasource.Lookup(doc, path)
	if g != models.GranularidadNinguna && v != nil {
		return truncate(v, g)
	}
	return v
}

type accumulatorState struct {
	sum   float64
	n     int
	count int64
	best  interface{}
}

type groupState struct {
	keys map[string]interface{}
	accs []*accumulatorState
}

func group(docs []map[string]interface{}, g compiler.Group) []map[string]interface{} {
	var order []string
	groups := make(map[string]*groupState)

	for _, d := range docs {
		keys := make(map[string]interface{}, len(g.Keys))
		parts := make([]string, 0, len(g.Keys))
		for _, k := range g.Keys {
			v := value(d, k.Path, k.Granularity)
			keys[k.Key] = v
			parts = append(parts, fmt.Sprintf("%T:%v", v, v))
		}
		id := strings.Join(parts, "|")

		st, ok := groups[id]
		if !ok {
			st = &groupState{keys: keys, accs: make([]*accumulatorState, len(g.Accumulators))}
			for i := range st.accs {
				st.accs[i] = &accumulatorState{}
			}
			groups[id] = st
			order = append(order, id)
		}
		for i, acc := range g.Accumulators {
			accumulate(st.accs[i], acc, d)
		}
	}

	out := make([]map[string]interface{}, 0, len(order))
	for _, id := range order {
		st := groups[id]
		row := make(map[string]interface{}, len(g.Keys)+len(g.Accumulators))
		for k, v := range st.keys {
			row[k] = v
		}
		for i, acc := range g.Accumulators {
			row[acc.Key] = result(st.accs[i], acc.Func)
		}
		out = append(out, row)
	}
	return out
}

func accumulate(st *accumulatorState, acc compiler.Accumulator, doc map[string]interface{}) {
	st.count++
	v, _ := datasource.Lookup(doc, acc.Path)
	if v == nil {
		return
	}
	switch acc.Func {
	case catalog.AggSum, catalog.AggAvg:
		if f, ok := asFloat(v); ok {
			st.sum += f
			st.n++
		}
	case catalog.AggMin:
		if st.best == nil || sortOrder(v, st.best) < 0 {
			st.best = v
		}
	case catalog.AggMax:
		if st.best == nil || sortOrder(v, st.best) > 0 {
			st.best = v
		}
	}
}

func result(st *accumulatorState, fn catalog.Aggregation) interface{} {
	switch fn {
	case catalog.AggSum:
		return st.sum
	case catalog.AggAvg:
		if st.n == 0 {
			return nil
		}
		return st.sum / float64(st.n)
	case catalog.AggCount:
		return st.count
	}
	if t, ok := asTime(st.best); ok {
		return t.UTC()
	}
	return st.best
}

func sortRows(rows []map[string]interface{}, s compiler.Sort) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range s.Keys {
			a, _ := datasource.Lookup(rows[i], k.Field)
			b, _ := datasource.Lookup(rows[j], k.Field)
			// las claves de salida pueden contener puntos
			if v, ok := rows[i][k.Field]; ok {
				a = v
			}
			if v, ok := rows[j][k.Field]; ok {
				b = v
			}
			c := sortOrder(a, b)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func paginate(rows []map[string]interface{}, p compiler.Paginate) []map[string]interface{} {
	if p.Skip >= len(rows) {
		return []map[string]interface{}{}
	}
	end := p.Skip + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[p.Skip:end]
}

func project(docs []map[string]interface{}, p compiler.Project) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		row := make(map[string]interface{}, len(p.Columns))
		for _, c := range p.Columns {
			row[c.Key] = value(d, c.Path, c.Granularity)
		}
		out = append(out, row)
	}
	return out
}
