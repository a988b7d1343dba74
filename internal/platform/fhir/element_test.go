package fhir

import (
	"testing"
	"time"
)

func TestConceptToken(t *testing.T) {
	coded := map[string]interface{}{
		"coding": []interface{}{
			map[string]interface{}{"system": "http://loinc.org", "code": "11450-4"},
		},
		"text": "Problems",
	}
	if got := ConceptToken(coded); got != "http://loinc.org|11450-4" {
		t.Errorf("got %q", got)
	}

	textOnly := map[string]interface{}{"text": "Influenza vaccine"}
	if got := ConceptToken(textOnly); got != "Influenza vaccine" {
		t.Errorf("got %q", got)
	}

	if got := ConceptToken(nil); got != "" {
		t.Errorf("nil concept: got %q", got)
	}
}

func TestHasCoding(t *testing.T) {
	concept := map[string]interface{}{
		"coding": []interface{}{
			map[string]interface{}{"system": "http://loinc.org", "code": "81338-6"},
			map[string]interface{}{"system": "http://snomed.info/sct", "code": "1234"},
		},
	}
	if !HasCoding(concept, "http://snomed.info/sct", "1234") {
		t.Error("expected coding match")
	}
	if HasCoding(concept, "http://loinc.org", "1234") {
		t.Error("system and code must match on the same coding")
	}
}

func TestIdentifierPairs_SkipsIncomplete(t *testing.T) {
	resource := map[string]interface{}{
		"identifier": []interface{}{
			map[string]interface{}{"system": "http://a", "value": "1"},
			map[string]interface{}{"system": "http://b"},
			map[string]interface{}{"value": "3"},
		},
	}
	pairs := IdentifierPairs(resource)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0] != [2]string{"http://a", "1"} {
		t.Errorf("got %v", pairs[0])
	}
}

func TestIdentifierValue(t *testing.T) {
	resource := map[string]interface{}{
		"identifier": []interface{}{
			map[string]interface{}{"system": "http://a", "value": "1"},
			map[string]interface{}{"system": "http://b", "value": "2"},
		},
	}
	if got := IdentifierValue(resource, "http://b"); got != "2" {
		t.Errorf("got %q", got)
	}
	if got := IdentifierValue(resource, "http://c"); got != "" {
		t.Errorf("unknown system: got %q", got)
	}
}

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-06-10T08:30:00+10:00", time.Date(2024, 6, 10, 8, 30, 0, 0, time.FixedZone("", 10*3600)), true},
		{"2024-06-10T08:30:00", time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC), true},
		{"2024-06-10", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), true},
		{"2024-06", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"not-a-date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseDateTime(tc.in)
		if ok != tc.ok {
			t.Errorf("%q: ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDateOnly(t *testing.T) {
	if got := DateOnly("2024-06-10T08:30:00+10:00"); got != "2024-06-10" {
		t.Errorf("got %q", got)
	}
	if got := DateOnly("garbage"); got != "garbage" {
		t.Errorf("unparseable input must pass through: got %q", got)
	}
}

func TestEscapeHTML(t *testing.T) {
	if got := EscapeHTML(`<b>&"`); got != "&lt;b&gt;&amp;&#34;" {
		t.Errorf("got %q", got)
	}
}

func TestRefString(t *testing.T) {
	if got := RefString(map[string]interface{}{"reference": "urn:uuid:abc"}); got != "urn:uuid:abc" {
		t.Errorf("got %q", got)
	}
	if got := RefString(nil); got != "" {
		t.Errorf("nil ref: got %q", got)
	}
}
