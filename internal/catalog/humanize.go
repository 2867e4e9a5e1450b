package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Humanize turns an internal name like "created_at" or "customer-id" into
// a display name like "Created At". Used as the fallback when metadata
// carries no explicit display name.
func Humanize(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, p := range parts {
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, " ")
}

// FieldDisplayName returns the field's display name, humanizing the
// internal name when none is set.
func FieldDisplayName(f *Field) string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return Humanize(f.Name)
}

// TableDisplayName returns the table's display name, humanizing the
// internal name when none is set.
func TableDisplayName(t *Table) string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return Humanize(t.Name)
}
