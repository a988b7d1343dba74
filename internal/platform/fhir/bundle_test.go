package fhir

import (
	"testing"
)

const sampleBundle = `{
	"resourceType": "Bundle",
	"type": "document",
	"identifier": {"system": "http://example.org/docs", "value": "doc-1"},
	"timestamp": "2024-06-10T08:30:00Z",
	"entry": [
		{"fullUrl": "urn:uuid:comp-1", "resource": {"resourceType": "Composition", "title": "Summary"}},
		{"fullUrl": "urn:uuid:cond-1", "resource": {"resourceType": "Condition"}}
	]
}`

func TestParseBundle(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Type != "document" {
		t.Errorf("got type %q", b.Type)
	}
	if b.Identifier == nil || b.Identifier.Value != "doc-1" {
		t.Error("identifier not decoded")
	}
	if b.Timestamp == nil {
		t.Error("timestamp not decoded")
	}
	if len(b.Entry) != 2 {
		t.Fatalf("got %d entries", len(b.Entry))
	}
}

func TestParseBundle_WrongResourceType(t *testing.T) {
	if _, err := ParseBundle([]byte(`{"resourceType": "Patient"}`)); err == nil {
		t.Fatal("expected error for non-Bundle resource")
	}
}

func TestParseBundle_InvalidJSON(t *testing.T) {
	if _, err := ParseBundle([]byte(`{`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestBundleLookups(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	comp := b.FirstResource("Composition")
	if comp == nil || comp["title"] != "Summary" {
		t.Error("FirstResource did not find the Composition")
	}
	if b.FirstResource("Observation") != nil {
		t.Error("FirstResource must return nil for a missing type")
	}

	if r := b.ResourceByFullURL("urn:uuid:cond-1"); r == nil || ResourceType(r) != "Condition" {
		t.Error("ResourceByFullURL did not resolve the entry")
	}
	if b.ResourceByFullURL("urn:uuid:missing") != nil {
		t.Error("ResourceByFullURL must return nil for an unknown fullUrl")
	}

	if !b.HasFullURL("urn:uuid:comp-1") || b.HasFullURL("urn:uuid:missing") {
		t.Error("HasFullURL mismatch")
	}
}

func TestAddEntry(t *testing.T) {
	b := &Bundle{ResourceType: "Bundle", Type: "document"}
	b.AddEntry("urn:uuid:x", map[string]interface{}{"resourceType": "Patient"})
	if len(b.Entry) != 1 || b.Entry[0].FullURL != "urn:uuid:x" {
		t.Errorf("entry not appended: %+v", b.Entry)
	}
}
