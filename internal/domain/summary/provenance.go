package summary

import (
	"github.com/mhr/summary/internal/platform/fhir"
)

// addProvenance appends a Provenance entry linking a just-included clinical
// fact to its source document and the document's author/custodian chain.
func (s *Service) addProvenance(cb *CanonicalBundle, doc *SourceDocument, targetFullURL string) {
	recorded := doc.Timestamp()
	if recorded.IsZero() {
		recorded = s.now()
	}

	prov := map[string]interface{}{
		"resourceType": "Provenance",
		"recorded":     recorded.Format("2006-01-02T15:04:05Z07:00"),
		"target": []interface{}{
			map[string]interface{}{"reference": targetFullURL},
		},
	}

	var agents []interface{}
	comp := doc.Composition()
	if author := fhir.FirstMap(comp, "author"); author != nil {
		agents = append(agents, s.provenanceAgent(cb, doc, "author", "Author", fhir.RefString(author)))
	}
	if custodian := fhir.MapAt(comp, "custodian"); custodian != nil {
		agents = append(agents, s.provenanceAgent(cb, doc, "custodian", "Custodian", fhir.RefString(custodian)))
	}
	if len(agents) > 0 {
		prov["agent"] = agents
	}

	prov["entity"] = []interface{}{s.provenanceEntity(doc)}

	cb.Append(prov)
}

// provenanceAgent builds one agent, resolving the referenced actor against
// the canonical bundle. A matched actor keeps its existing entry; an
// unmatched one is copied in under its original document-local reference.
// When the reference does not resolve inside the source document the agent
// keeps its type but carries no who.
func (s *Service) provenanceAgent(cb *CanonicalBundle, doc *SourceDocument, code, display, ref string) map[string]interface{} {
	agent := map[string]interface{}{
		"type": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{
					"system":  participantTypeSystem,
					"code":    code,
					"display": display,
				},
			},
		},
	}
	if ref == "" {
		return agent
	}

	actor := doc.Bundle.ResourceByFullURL(ref)
	if actor == nil {
		return agent
	}

	who := ref
	if existing, ok := FindActor(actor, cb); ok {
		who = existing
	} else {
		cb.AppendShared(ref, deepCopy(actor))
	}
	agent["who"] = map[string]interface{}{"reference": who}
	return agent
}

// provenanceEntity records the originating source document: its own
// identifier plus the source Composition title as display.
func (s *Service) provenanceEntity(doc *SourceDocument) map[string]interface{} {
	what := map[string]interface{}{"type": "Bundle"}
	if id := doc.Bundle.Identifier; id != nil {
		what["identifier"] = map[string]interface{}{
			"system": id.System,
			"value":  id.Value,
		}
	}
	if title := fhir.Str(doc.Composition(), "title"); title != "" {
		what["display"] = title
	}
	return map[string]interface{}{
		"role": "source",
		"what": what,
	}
}
