package filter

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lsst-ts/narrativelog/internal/taxonomy"
)

func condSQL(c *Compiled) []string {
	out := make([]string, len(c.Conds))
	for i, cond := range c.Conds {
		out[i] = cond.SQL
	}
	return out
}

func hasCond(t *testing.T, c *Compiled, sql string) Cond {
	t.Helper()
	for _, cond := range c.Conds {
		if cond.SQL == sql {
			return cond
		}
	}
	t.Fatalf("missing condition %q in %v", sql, condSQL(c))
	return Cond{}
}

func TestCompileDefaults(t *testing.T) {
	c, err := Compile(Params{})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	// Only the implicit is_valid=true filter.
	if len(c.Conds) != 1 || c.Conds[0].SQL != "messages.date_invalidated IS NULL" {
		t.Fatalf("conds = %v, want only the is_valid filter", condSQL(c))
	}
	if !reflect.DeepEqual(c.Order, []string{"messages.id ASC"}) {
		t.Fatalf("order = %v, want id ascending", c.Order)
	}
	if c.Limit != DefaultLimit || c.Offset != 0 {
		t.Fatalf("limit/offset = %d/%d, want %d/0", c.Limit, c.Offset, DefaultLimit)
	}
}

func TestCompileMinMaxHas(t *testing.T) {
	begin := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := Compile(Params{
		Min:     map[string]any{"level": 20, "date_begin": begin},
		Max:     map[string]any{"level": 40},
		Has:     map[string]bool{"date_end": true, "parent_id": false},
		IsValid: TriEither,
	})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	cond := hasCond(t, c, "messages.level >= ?")
	if cond.Vars[0] != 20 {
		t.Fatalf("min level var = %v, want 20", cond.Vars[0])
	}
	hasCond(t, c, "messages.date_begin >= ?")
	cond = hasCond(t, c, "messages.level < ?")
	if cond.Vars[0] != 40 {
		t.Fatalf("max level var = %v, want 40", cond.Vars[0])
	}
	hasCond(t, c, "messages.date_end IS NOT NULL")
	hasCond(t, c, "messages.parent_id IS NULL")
	for _, sql := range condSQL(c) {
		if strings.Contains(sql, "date_invalidated") {
			t.Fatalf("is_valid=either must not filter validity, got %q", sql)
		}
	}
}

func TestCompileArrayFamilies(t *testing.T) {
	c, err := Compile(Params{
		Overlap: map[string][]string{"tags": {"dome"}, "components": {"MTMount CSC"}},
		Exclude: map[string][]string{"systems": {"AuxTel"}},
	})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	hasCond(t, c, "jsonb_exists_any(messages.tags, ?::text[])")
	hasCond(t, c, "jsonb_exists_any(jira_fields.components, ?::text[])")
	hasCond(t, c, "NOT COALESCE(jsonb_exists_any(messages.systems, ?::text[]), FALSE)")
}

func TestCompileMembershipAndSubstring(t *testing.T) {
	c, err := Compile(Params{
		In:       map[string][]string{"site_id": {"summit", "base"}},
		Contains: map[string]string{"message_text": "dome failed"},
	})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	cond := hasCond(t, c, "messages.site_id IN ?")
	if !reflect.DeepEqual(cond.Vars[0], []string{"summit", "base"}) {
		t.Fatalf("membership vars = %v", cond.Vars)
	}
	cond = hasCond(t, c, "POSITION(? IN messages.message_text) > 0")
	if cond.Vars[0] != "dome failed" {
		t.Fatalf("substring var = %v", cond.Vars[0])
	}
}

func TestCompileTriState(t *testing.T) {
	c, err := Compile(Params{IsHuman: TriFalse, IsValid: TriFalse})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	cond := hasCond(t, c, "messages.is_human = ?")
	if cond.Vars[0] != false {
		t.Fatalf("is_human var = %v, want false", cond.Vars[0])
	}
	hasCond(t, c, "messages.date_invalidated IS NOT NULL")
}

func TestCompileComponentsPath(t *testing.T) {
	c, err := Compile(Params{
		ComponentsPath: taxonomy.PathSpec{"systems": []any{"AuxTel"}},
		IsValid:        TriEither,
	})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	cond := hasCond(t, c, "jsonb_exists_any(jira_fields.components_json -> ?, ?::text[])")
	if cond.Vars[0] != "systems" {
		t.Fatalf("path key var = %v, want systems", cond.Vars[0])
	}
}

func TestCompileComponentsPathMultipleKeysOr(t *testing.T) {
	c, err := Compile(Params{
		ComponentsPath: taxonomy.PathSpec{
			"systems":    []any{"AuxTel"},
			"subsystems": []any{"Dome"},
		},
		IsValid: TriEither,
	})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if len(c.Conds) != 1 {
		t.Fatalf("conds = %v, want a single OR condition", condSQL(c))
	}
	sql := c.Conds[0].SQL
	if strings.Count(sql, "jsonb_exists_any") != 2 || !strings.Contains(sql, " OR ") {
		t.Fatalf("path condition %q is not an OR over keys", sql)
	}
}

func TestCompileEmptyComponentsPathMatchesNothing(t *testing.T) {
	c, err := Compile(Params{ComponentsPath: taxonomy.PathSpec{}, IsValid: TriEither})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	hasCond(t, c, "1 = 0")
}

func TestCompileEmptyExcludePathIsNoOp(t *testing.T) {
	c, err := Compile(Params{ExcludeComponentsPath: taxonomy.PathSpec{}, IsValid: TriEither})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if len(c.Conds) != 0 {
		t.Fatalf("conds = %v, want none", condSQL(c))
	}
}

func TestCompileExcludeComponentsPath(t *testing.T) {
	c, err := Compile(Params{
		ExcludeComponentsPath: taxonomy.PathSpec{"systems": []any{"AuxTel"}},
		IsValid:               TriEither,
	})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	sql := c.Conds[0].SQL
	if !strings.HasPrefix(sql, "NOT COALESCE(") {
		t.Fatalf("exclude path condition %q is not NULL-safe negated", sql)
	}
}

func TestCompileOrderBy(t *testing.T) {
	c, err := Compile(Params{OrderBy: []string{"-level", "date_added"}})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	want := []string{"messages.level DESC", "messages.date_added ASC", "messages.id ASC"}
	if !reflect.DeepEqual(c.Order, want) {
		t.Fatalf("order = %v, want %v (id tiebreak appended)", c.Order, want)
	}
}

func TestCompileOrderByKeepsExplicitID(t *testing.T) {
	c, err := Compile(Params{OrderBy: []string{"-id", "level"}})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	want := []string{"messages.id DESC", "messages.level ASC"}
	if !reflect.DeepEqual(c.Order, want) {
		t.Fatalf("order = %v, want %v", c.Order, want)
	}
}

func TestCompileOrderByDerivedIsValid(t *testing.T) {
	c, err := Compile(Params{OrderBy: []string{"-is_valid"}})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if c.Order[0] != "(messages.date_invalidated IS NULL) DESC" {
		t.Fatalf("order = %v, want derived is_valid expression", c.Order)
	}
}

func TestCompileUnknownOrderField(t *testing.T) {
	_, err := Compile(Params{OrderBy: []string{"level", "no_such", "-bogus"}})
	if err == nil {
		t.Fatalf("Compile succeeded, want error")
	}
	var unknown *UnknownOrderFieldsError
	if !errors.As(err, &unknown) {
		t.Fatalf("error %T is not UnknownOrderFieldsError", err)
	}
	if !reflect.DeepEqual(unknown.Fields, []string{"-bogus", "no_such"}) {
		t.Fatalf("bad fields = %v", unknown.Fields)
	}
}

func TestCompileUnknownFilterField(t *testing.T) {
	if _, err := Compile(Params{Min: map[string]any{"no_such": 1}}); err == nil {
		t.Fatalf("Compile succeeded for unknown min field")
	}
	if _, err := Compile(Params{Overlap: map[string][]string{"level": {"x"}}}); err == nil {
		t.Fatalf("Compile succeeded for overlap on a non-array field")
	}
}

func TestParseTriState(t *testing.T) {
	v, err := ParseTriState("", TriTrue)
	if err != nil || v != TriTrue {
		t.Fatalf("default = %v, %v", v, err)
	}
	if _, err := ParseTriState("maybe", TriEither); err == nil {
		t.Fatalf("ParseTriState accepted invalid value")
	}
}

func TestPGTextArrayLiteral(t *testing.T) {
	v, err := pgTextArray{"plain", `qu"ote`, `back\slash`}.Value()
	if err != nil {
		t.Fatalf("Value error: %v", err)
	}
	want := `{"plain","qu\"ote","back\\slash"}`
	if v != want {
		t.Fatalf("literal = %q, want %q", v, want)
	}
}
