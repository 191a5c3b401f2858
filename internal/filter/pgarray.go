package filter

import (
	"database/sql/driver"
	"strings"
)

// pgTextArray binds a []string as a PostgreSQL text[] parameter. GORM
// expands plain string slices into IN-list placeholders, so array-typed
// bind values must go through driver.Valuer and render the array literal
// form themselves.
type pgTextArray []string

func (a pgTextArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, item := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(escapeArrayElem(item))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String(), nil
}

func escapeArrayElem(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
