package summary

import (
	"github.com/mhr/summary/internal/platform/fhir"
)

// actorKinds is the closed set of resource kinds that participate in
// cross-document identity matching.
var actorKinds = map[string]bool{
	"Organization":  true,
	"Patient":       true,
	"RelatedPerson": true,
	"Device":        true,
	"Practitioner":  true,
}

// FindActor returns the fullUrl of an existing bundle entry representing
// the same real-world actor as the candidate: same resource kind and at
// least one shared identifier (system,value) pair. Candidates without
// identifiers never match and are always treated as new.
func FindActor(candidate map[string]interface{}, cb *CanonicalBundle) (string, bool) {
	kind := fhir.ResourceType(candidate)
	if !actorKinds[kind] {
		return "", false
	}
	pairs := fhir.IdentifierPairs(candidate)
	if len(pairs) == 0 {
		return "", false
	}

	for _, entry := range cb.Entries() {
		if fhir.ResourceType(entry.Resource) != kind {
			continue
		}
		for _, have := range fhir.IdentifierPairs(entry.Resource) {
			for _, want := range pairs {
				if have == want {
					return entry.FullURL, true
				}
			}
		}
	}
	return "", false
}
