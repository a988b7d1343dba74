package fhir

import (
	"html"
	"time"
)

// Accessors for resources held as generic maps. Malformed or absent elements
// yield zero values so callers degrade to empty output instead of failing.

// ResourceType returns the resourceType of a map-backed resource.
func ResourceType(resource map[string]interface{}) string {
	if resource == nil {
		return ""
	}
	rt, _ := resource["resourceType"].(string)
	return rt
}

// Str returns a string element of the resource.
func Str(resource map[string]interface{}, key string) string {
	if resource == nil {
		return ""
	}
	v, _ := resource[key].(string)
	return v
}

// MapAt returns a nested object element.
func MapAt(resource map[string]interface{}, key string) map[string]interface{} {
	if resource == nil {
		return nil
	}
	m, _ := resource[key].(map[string]interface{})
	return m
}

// SliceAt returns a nested array element.
func SliceAt(resource map[string]interface{}, key string) []interface{} {
	if resource == nil {
		return nil
	}
	s, _ := resource[key].([]interface{})
	return s
}

// FirstMap returns the first object of a nested array element.
func FirstMap(resource map[string]interface{}, key string) map[string]interface{} {
	for _, v := range SliceAt(resource, key) {
		if m, ok := v.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

// ConceptText returns the text of a CodeableConcept element, or "".
func ConceptText(concept map[string]interface{}) string {
	return Str(concept, "text")
}

// FirstCodingCode returns the code of the first coding of a CodeableConcept.
func FirstCodingCode(concept map[string]interface{}) string {
	return Str(FirstMap(concept, "coding"), "code")
}

// ConceptToken renders a CodeableConcept as "system|code" from its first
// coding, falling back to the concept text.
func ConceptToken(concept map[string]interface{}) string {
	coding := FirstMap(concept, "coding")
	if coding != nil {
		code := Str(coding, "code")
		if system := Str(coding, "system"); system != "" {
			return system + "|" + code
		}
		return code
	}
	return ConceptText(concept)
}

// HasCoding reports whether a CodeableConcept contains a coding with the
// given system and code.
func HasCoding(concept map[string]interface{}, system, code string) bool {
	for _, v := range SliceAt(concept, "coding") {
		coding, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if Str(coding, "system") == system && Str(coding, "code") == code {
			return true
		}
	}
	return false
}

// RefString returns the reference string of a Reference element.
func RefString(ref map[string]interface{}) string {
	return Str(ref, "reference")
}

// IdentifierPairs extracts the (system,value) pairs of a resource's
// identifier list, skipping identifiers missing either part.
func IdentifierPairs(resource map[string]interface{}) [][2]string {
	var pairs [][2]string
	for _, v := range SliceAt(resource, "identifier") {
		id, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		system := Str(id, "system")
		value := Str(id, "value")
		if system == "" || value == "" {
			continue
		}
		pairs = append(pairs, [2]string{system, value})
	}
	return pairs
}

// IdentifierValue returns the value of the resource identifier with the
// given system, or "".
func IdentifierValue(resource map[string]interface{}, system string) string {
	for _, p := range IdentifierPairs(resource) {
		if p[0] == system {
			return p[1]
		}
	}
	return ""
}

// dateTimeLayouts covers the precisions a FHIR dateTime or date may carry.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDateTime parses a FHIR dateTime/date string at any precision.
func ParseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOnly reformats a FHIR dateTime string as yyyy-mm-dd, or returns it
// unchanged when it does not parse.
func DateOnly(s string) string {
	if s == "" {
		return ""
	}
	t, ok := ParseDateTime(s)
	if !ok {
		return s
	}
	return t.Format("2006-01-02")
}

// EscapeHTML escapes a value for inclusion in narrative XHTML.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
