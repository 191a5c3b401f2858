// Package filter compiles the find-messages query parameters into SQL
// predicates and an ordering specification.
//
// The parameter families (min_*, max_*, has_*, array overlap/exclusion,
// membership, substring, tri-state, nested taxonomy paths) are resolved
// against a fixed column registry built at startup, so an unrecognized
// field is a compile error rather than a runtime surprise.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lsst-ts/narrativelog/internal/taxonomy"
)

// TriState is a three-valued filter: no filter, must be true, must be false.
type TriState string

const (
	TriEither TriState = "either"
	TriTrue   TriState = "true"
	TriFalse  TriState = "false"
)

// ParseTriState parses a tri-state query value. Empty input yields def.
func ParseTriState(value string, def TriState) (TriState, error) {
	switch strings.TrimSpace(value) {
	case "":
		return def, nil
	case string(TriEither):
		return TriEither, nil
	case string(TriTrue):
		return TriTrue, nil
	case string(TriFalse):
		return TriFalse, nil
	}
	return def, fmt.Errorf("invalid tri-state value %q; allowed values are either, true, false", value)
}

// column describes one filterable/orderable field of the joined
// messages + jira_fields row.
type column struct {
	sql   string // qualified column name or derived expression
	array bool   // jsonb string array, supports overlap/exclusion
}

// registry maps public field names to storage columns. "is_valid" is
// derived: it is never stored, only computed from date_invalidated.
var registry = map[string]column{
	"id":               {sql: "messages.id"},
	"site_id":          {sql: "messages.site_id"},
	"message_text":     {sql: "messages.message_text"},
	"level":            {sql: "messages.level"},
	"tags":             {sql: "messages.tags", array: true},
	"urls":             {sql: "messages.urls", array: true},
	"time_lost":        {sql: "messages.time_lost"},
	"date_begin":       {sql: "messages.date_begin"},
	"date_end":         {sql: "messages.date_end"},
	"user_id":          {sql: "messages.user_id"},
	"user_agent":       {sql: "messages.user_agent"},
	"is_human":         {sql: "messages.is_human"},
	"is_valid":         {sql: "(messages.date_invalidated IS NULL)"},
	"date_added":       {sql: "messages.date_added"},
	"date_invalidated": {sql: "messages.date_invalidated"},
	"parent_id":        {sql: "messages.parent_id"},
	"systems":          {sql: "messages.systems", array: true},
	"subsystems":       {sql: "messages.subsystems", array: true},
	"cscs":             {sql: "messages.cscs", array: true},
	"category":         {sql: "messages.category"},
	"time_lost_type":   {sql: "messages.time_lost_type"},

	"components":                  {sql: "jira_fields.components", array: true},
	"primary_software_components": {sql: "jira_fields.primary_software_components", array: true},
	"primary_hardware_components": {sql: "jira_fields.primary_hardware_components", array: true},
	"components_json":             {sql: "jira_fields.components_json"},
}

// DefaultLimit is applied when the caller does not supply one.
const DefaultLimit = 50

// Params is the canonical form of a find-messages request, keyed by the
// public field names of the column registry.
type Params struct {
	Min      map[string]any      // field -> inclusive lower bound
	Max      map[string]any      // field -> exclusive upper bound
	Has      map[string]bool     // field -> non-null (true) / null (false)
	Overlap  map[string][]string // array field -> values, any must intersect
	Exclude  map[string][]string // array field -> values, none may intersect
	In       map[string][]string // scalar field -> allowed values
	Contains map[string]string   // field -> required substring

	IsHuman TriState
	IsValid TriState // defaults to TriTrue when unset

	ComponentsPath        taxonomy.PathSpec
	ExcludeComponentsPath taxonomy.PathSpec

	OrderBy []string // field names, "-" prefix for descending
	Limit   int
	Offset  int
}

// Cond is one SQL predicate with its bind variables. Conds are combined
// with AND by the storage layer.
type Cond struct {
	SQL  string
	Vars []any
}

// Compiled is the output of Compile: predicates, ordering, and pagination
// ready to apply to the joined select.
type Compiled struct {
	Conds  []Cond
	Order  []string
	Limit  int
	Offset int
}

// UnknownOrderFieldsError reports order_by entries that name no known field.
type UnknownOrderFieldsError struct {
	Fields []string
}

func (e *UnknownOrderFieldsError) Error() string {
	return fmt.Sprintf("invalid order_by fields: %v; allowed values are the message field names, optionally prefixed with -", e.Fields)
}

// Compile translates Params into predicates and ordering. Field names not
// present in the column registry, or used with an inapplicable family,
// are errors.
func Compile(p Params) (*Compiled, error) {
	out := &Compiled{
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if out.Limit == 0 {
		out.Limit = DefaultLimit
	}

	for _, field := range sortedKeys(p.Min) {
		col, err := lookup(field)
		if err != nil {
			return nil, err
		}
		out.Conds = append(out.Conds, Cond{SQL: col.sql + " >= ?", Vars: []any{p.Min[field]}})
	}
	for _, field := range sortedKeys(p.Max) {
		col, err := lookup(field)
		if err != nil {
			return nil, err
		}
		out.Conds = append(out.Conds, Cond{SQL: col.sql + " < ?", Vars: []any{p.Max[field]}})
	}
	for _, field := range sortedKeys(p.Has) {
		col, err := lookup(field)
		if err != nil {
			return nil, err
		}
		if p.Has[field] {
			out.Conds = append(out.Conds, Cond{SQL: col.sql + " IS NOT NULL"})
		} else {
			out.Conds = append(out.Conds, Cond{SQL: col.sql + " IS NULL"})
		}
	}
	for _, field := range sortedKeys(p.Overlap) {
		col, err := lookupArray(field)
		if err != nil {
			return nil, err
		}
		values := p.Overlap[field]
		if len(values) == 0 {
			continue
		}
		out.Conds = append(out.Conds, Cond{
			SQL:  "jsonb_exists_any(" + col.sql + ", ?::text[])",
			Vars: []any{pgTextArray(values)},
		})
	}
	for _, field := range sortedKeys(p.Exclude) {
		col, err := lookupArray(field)
		if err != nil {
			return nil, err
		}
		values := p.Exclude[field]
		if len(values) == 0 {
			continue
		}
		// COALESCE keeps rows whose array is NULL: a missing array has an
		// empty intersection with any exclusion list.
		out.Conds = append(out.Conds, Cond{
			SQL:  "NOT COALESCE(jsonb_exists_any(" + col.sql + ", ?::text[]), FALSE)",
			Vars: []any{pgTextArray(values)},
		})
	}
	for _, field := range sortedKeys(p.In) {
		col, err := lookup(field)
		if err != nil {
			return nil, err
		}
		values := p.In[field]
		if len(values) == 0 {
			continue
		}
		out.Conds = append(out.Conds, Cond{SQL: col.sql + " IN ?", Vars: []any{values}})
	}
	for _, field := range sortedKeys(p.Contains) {
		col, err := lookup(field)
		if err != nil {
			return nil, err
		}
		out.Conds = append(out.Conds, Cond{SQL: "POSITION(? IN " + col.sql + ") > 0", Vars: []any{p.Contains[field]}})
	}

	if cond := triStateCond("messages.is_human", p.IsHuman); cond != nil {
		out.Conds = append(out.Conds, *cond)
	}
	// is_valid defaults to true: deleted and superseded messages are
	// hidden unless the caller asks for them.
	isValid := p.IsValid
	if isValid == "" {
		isValid = TriTrue
	}
	switch isValid {
	case TriTrue:
		out.Conds = append(out.Conds, Cond{SQL: "messages.date_invalidated IS NULL"})
	case TriFalse:
		out.Conds = append(out.Conds, Cond{SQL: "messages.date_invalidated IS NOT NULL"})
	}

	if p.ComponentsPath != nil {
		out.Conds = append(out.Conds, pathCond(p.ComponentsPath, false))
	}
	if p.ExcludeComponentsPath != nil {
		if entries := p.ExcludeComponentsPath.Entries(); len(entries) > 0 {
			out.Conds = append(out.Conds, pathCond(p.ExcludeComponentsPath, true))
		}
	}

	order, err := compileOrder(p.OrderBy)
	if err != nil {
		return nil, err
	}
	out.Order = order
	return out, nil
}

// compileOrder validates the order_by fields and guarantees a total order:
// if the id field is not referenced it is appended ascending, so that
// limit/offset pagination is stable across repeated calls.
func compileOrder(orderBy []string) ([]string, error) {
	if len(orderBy) == 0 {
		orderBy = []string{"id"}
	} else {
		var bad []string
		hasID := false
		for _, item := range orderBy {
			field := strings.TrimPrefix(item, "-")
			if _, ok := registry[field]; !ok {
				bad = append(bad, item)
			}
			if field == "id" {
				hasID = true
			}
		}
		if len(bad) > 0 {
			sort.Strings(bad)
			return nil, &UnknownOrderFieldsError{Fields: bad}
		}
		if !hasID {
			orderBy = append(append([]string{}, orderBy...), "id")
		}
	}
	order := make([]string, 0, len(orderBy))
	for _, item := range orderBy {
		direction := "ASC"
		field := item
		if strings.HasPrefix(item, "-") {
			direction = "DESC"
			field = item[1:]
		}
		order = append(order, registry[field].sql+" "+direction)
	}
	return order, nil
}

// pathCond builds the nested-taxonomy predicate: OR over the spec's usable
// keys of "the row's components_json array under the key contains any of
// the candidates". A spec with no usable keys matches nothing.
func pathCond(spec taxonomy.PathSpec, exclude bool) Cond {
	entries := spec.Entries()
	if len(entries) == 0 {
		return Cond{SQL: "1 = 0"}
	}
	parts := make([]string, 0, len(entries))
	vars := make([]any, 0, 2*len(entries))
	for _, entry := range entries {
		parts = append(parts, "jsonb_exists_any(jira_fields.components_json -> ?, ?::text[])")
		vars = append(vars, entry.Key, pgTextArray(entry.Values))
	}
	matched := strings.Join(parts, " OR ")
	if exclude {
		return Cond{SQL: "NOT COALESCE(" + matched + ", FALSE)", Vars: vars}
	}
	if len(parts) > 1 {
		matched = "(" + matched + ")"
	}
	return Cond{SQL: matched, Vars: vars}
}

func triStateCond(sql string, v TriState) *Cond {
	switch v {
	case TriTrue:
		return &Cond{SQL: sql + " = ?", Vars: []any{true}}
	case TriFalse:
		return &Cond{SQL: sql + " = ?", Vars: []any{false}}
	}
	return nil
}

func lookup(field string) (column, error) {
	col, ok := registry[field]
	if !ok {
		return column{}, fmt.Errorf("unrecognized filter field %q", field)
	}
	return col, nil
}

func lookupArray(field string) (column, error) {
	col, err := lookup(field)
	if err != nil {
		return column{}, err
	}
	if !col.array {
		return column{}, fmt.Errorf("field %q is not an array field", field)
	}
	return col, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
