package summary

import (
	"strings"

	"github.com/mhr/summary/internal/platform/fhir"
)

const xhtmlDivOpen = `<div xmlns="http://www.w3.org/1999/xhtml">`

// TableBuilder accumulates the rows of a section narrative and renders the
// XHTML table only at finalization. An empty builder renders the section's
// fixed no-data sentence instead of an empty table.
type TableBuilder struct {
	columns   []string
	emptyText string
	rows      [][]string
}

func NewTableBuilder(columns []string, emptyText string) *TableBuilder {
	return &TableBuilder{columns: columns, emptyText: emptyText}
}

// AddRow appends one row. Missing trailing cells render as empty columns.
func (t *TableBuilder) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Empty reports whether no rows were ever added.
func (t *TableBuilder) Empty() bool {
	return len(t.rows) == 0
}

// Render produces the narrative div for the section.
func (t *TableBuilder) Render() string {
	var b strings.Builder
	b.WriteString(xhtmlDivOpen)
	if t.Empty() {
		b.WriteString(fhir.EscapeHTML(t.emptyText))
		b.WriteString("</div>")
		return b.String()
	}

	b.WriteString(`<table border="1"><thead><tr>`)
	for _, col := range t.columns {
		b.WriteString("<th>")
		b.WriteString(fhir.EscapeHTML(col))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range t.rows {
		b.WriteString("<tr>")
		for i := range t.columns {
			b.WriteString("<td>")
			if i < len(row) {
				b.WriteString(fhir.EscapeHTML(row[i]))
			}
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></div>")
	return b.String()
}

// narrativeText wraps a rendered div as a resource text element.
func narrativeText(status, div string) map[string]interface{} {
	return map[string]interface{}{
		"status": status,
		"div":    div,
	}
}

// patientNarrative generates the Name / Date of Birth / Gender narrative
// attached to the canonical Patient entry.
func patientNarrative(patient map[string]interface{}) map[string]interface{} {
	var b strings.Builder
	b.WriteString(xhtmlDivOpen)

	b.WriteString("<b>Name:</b> ")
	b.WriteString(fhir.EscapeHTML(orUnknown(patientDisplayName(patient))))

	b.WriteString("<br/><b>Date of Birth:</b> ")
	b.WriteString(fhir.EscapeHTML(orUnknown(fhir.Str(patient, "birthDate"))))

	b.WriteString("<br/><b>Gender:</b> ")
	b.WriteString(fhir.EscapeHTML(orUnknown(fhir.Str(patient, "gender"))))

	b.WriteString("</div>")
	return narrativeText("generated", b.String())
}

func patientDisplayName(patient map[string]interface{}) string {
	name := fhir.FirstMap(patient, "name")
	if name == nil {
		return ""
	}
	var parts []string
	for _, g := range fhir.SliceAt(name, "given") {
		if s, ok := g.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	if family := fhir.Str(name, "family"); family != "" {
		parts = append(parts, family)
	}
	return strings.Join(parts, " ")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
