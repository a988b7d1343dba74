package summary

import (
	"strings"
	"testing"
)

func TestTableBuilder_RendersRows(t *testing.T) {
	tb := NewTableBuilder([]string{"Condition", "Status"}, "No problems or conditions recorded.")
	tb.AddRow("Diabetes", "active")
	tb.AddRow("Asthma", "resolved")

	div := tb.Render()
	if !strings.HasPrefix(div, xhtmlDivOpen) || !strings.HasSuffix(div, "</div>") {
		t.Errorf("narrative not wrapped in xhtml div: %s", div)
	}
	if !strings.Contains(div, `<table border="1"><thead><tr><th>Condition</th><th>Status</th></tr></thead>`) {
		t.Errorf("missing table header: %s", div)
	}
	if got := strings.Count(div, "<tr>") - 1; got != 2 {
		t.Errorf("got %d body rows, want 2", got)
	}
	if !strings.Contains(div, "<td>Diabetes</td><td>active</td>") {
		t.Errorf("missing row cells: %s", div)
	}
}

func TestTableBuilder_EmptyRendersSentence(t *testing.T) {
	tb := NewTableBuilder([]string{"Condition"}, "No problems or conditions recorded.")

	if !tb.Empty() {
		t.Error("builder with no rows must report empty")
	}
	div := tb.Render()
	if strings.Contains(div, "<table") {
		t.Errorf("empty builder must not render a table: %s", div)
	}
	if !strings.Contains(div, "No problems or conditions recorded.") {
		t.Errorf("missing no-data sentence: %s", div)
	}
}

func TestTableBuilder_EscapesCells(t *testing.T) {
	tb := NewTableBuilder([]string{"Condition"}, "none")
	tb.AddRow(`<script>alert("x")</script>`)

	div := tb.Render()
	if strings.Contains(div, "<script>") {
		t.Errorf("cell content not escaped: %s", div)
	}
	if !strings.Contains(div, "&lt;script&gt;") {
		t.Errorf("expected escaped markup: %s", div)
	}
}

func TestTableBuilder_ShortRowPadsColumns(t *testing.T) {
	tb := NewTableBuilder([]string{"A", "B", "C"}, "none")
	tb.AddRow("only")

	div := tb.Render()
	if !strings.Contains(div, "<td>only</td><td></td><td></td>") {
		t.Errorf("short row must pad to the column count: %s", div)
	}
}

func TestPatientNarrative(t *testing.T) {
	text := patientNarrative(testPatient())
	div, _ := text["div"].(string)

	if text["status"] != "generated" {
		t.Errorf("got status %v, want generated", text["status"])
	}
	if !strings.Contains(div, "<b>Name:</b> Jane Citizen") {
		t.Errorf("missing name line: %s", div)
	}
	if !strings.Contains(div, "<b>Date of Birth:</b> 1980-04-12") {
		t.Errorf("missing birth date line: %s", div)
	}
	if !strings.Contains(div, "<b>Gender:</b> female") {
		t.Errorf("missing gender line: %s", div)
	}
}

func TestPatientNarrative_UnknownFallbacks(t *testing.T) {
	text := patientNarrative(map[string]interface{}{"resourceType": "Patient"})
	div, _ := text["div"].(string)

	if got := strings.Count(div, "Unknown"); got != 3 {
		t.Errorf("got %d Unknown fallbacks, want 3: %s", got, div)
	}
}

func TestNarrativeText(t *testing.T) {
	got := narrativeText("generated", "<div/>")
	if got["status"] != "generated" || got["div"] != "<div/>" {
		t.Errorf("unexpected narrative element: %v", got)
	}
}
