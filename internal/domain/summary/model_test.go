package summary

import (
	"strings"
	"testing"
	"time"
)

func TestCanonicalBundle_AppendAssignsCanonicalID(t *testing.T) {
	cb := newCanonicalBundle(DefaultSettings(), time.Now())
	fullURL := cb.Append(map[string]interface{}{"resourceType": "Condition"})

	if !strings.HasPrefix(fullURL, "urn:uuid:") {
		t.Fatalf("got fullUrl %q", fullURL)
	}
	res := cb.Bundle().ResourceByFullURL(fullURL)
	if res == nil {
		t.Fatal("entry not present")
	}
	if res["id"] != strings.TrimPrefix(fullURL, "urn:uuid:") {
		t.Errorf("id %v does not match fullUrl suffix", res["id"])
	}
}

func TestCanonicalBundle_AppendSharedIsIdempotent(t *testing.T) {
	cb := newCanonicalBundle(DefaultSettings(), time.Now())
	cb.AppendShared("urn:uuid:org-1", map[string]interface{}{"resourceType": "Organization", "name": "first"})
	cb.AppendShared("urn:uuid:org-1", map[string]interface{}{"resourceType": "Organization", "name": "second"})

	var count int
	for _, e := range cb.Entries() {
		if e.FullURL == "urn:uuid:org-1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("got %d entries under the shared fullUrl, want 1", count)
	}
	if got := cb.Bundle().ResourceByFullURL("urn:uuid:org-1")["name"]; got != "first" {
		t.Errorf("second append must be a no-op, got name %v", got)
	}
}

func TestDeepCopy_IsolatesNestedStructures(t *testing.T) {
	original := map[string]interface{}{
		"resourceType": "Condition",
		"subject":      map[string]interface{}{"reference": "urn:uuid:a"},
		"category": []interface{}{
			map[string]interface{}{"text": "problem"},
		},
	}
	cp := deepCopy(original)

	cp["subject"].(map[string]interface{})["reference"] = "urn:uuid:b"
	cp["category"].([]interface{})[0].(map[string]interface{})["text"] = "changed"

	if original["subject"].(map[string]interface{})["reference"] != "urn:uuid:a" {
		t.Error("nested map shared between copy and original")
	}
	if original["category"].([]interface{})[0].(map[string]interface{})["text"] != "problem" {
		t.Error("nested slice shared between copy and original")
	}
}

func TestSourceDocument_Excluded(t *testing.T) {
	doc := sourceDoc("http://myportal.org")
	if !doc.Excluded("http://myportal.org") {
		t.Error("matching identifier system must be excluded")
	}
	if doc.Excluded("http://example.org/docs") {
		t.Error("non-matching system must not be excluded")
	}

	doc.Bundle.Identifier = nil
	if doc.Excluded("http://myportal.org") {
		t.Error("document without identifier must not be excluded")
	}
}
