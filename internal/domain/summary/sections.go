package summary

import (
	"strings"
	"time"

	"github.com/mhr/summary/internal/platform/fhir"
)

// factKind describes one clinical resource type a section collects: which
// reference fields point at the patient, which element carries the date the
// temporal filter reads, an optional prepare hook run on the copied resource
// before it is appended, and the narrative row it contributes.
type factKind struct {
	resourceType    string
	subjectFields   []string
	occurrenceField string
	prepare         func(st *buildState, resource map[string]interface{})
	row             func(resource map[string]interface{}) []string
}

// sectionDef is one section variant: its fixed title, LOINC code, narrative
// table shape, empty text, and the fact kinds it collects.
type sectionDef struct {
	Title          string
	Code           string
	Columns        []string
	EmptyNarrative string
	Kinds          []factKind
}

// buildState is the per-document scratch a prepare hook works against.
type buildState struct {
	cb          *CanonicalBundle
	doc         *SourceDocument
	patientRef  string
	medications map[string]string
}

var (
	problemsSection = sectionDef{
		Title:          "Problems List",
		Code:           "11450-4",
		Columns:        []string{"Condition", "Clinical Status", "Verification Status", "Onset"},
		EmptyNarrative: "No problems or conditions recorded.",
		Kinds: []factKind{{
			resourceType:  "Condition",
			subjectFields: []string{"subject"},
			row:           statusOnsetRow,
		}},
	}

	allergiesSection = sectionDef{
		Title:          "Allergies and Intolerances",
		Code:           "48765-2",
		Columns:        []string{"Allergy", "Clinical Status", "Verification Status", "Onset"},
		EmptyNarrative: "No allergies or intolerances recorded.",
		Kinds: []factKind{{
			resourceType:  "AllergyIntolerance",
			subjectFields: []string{"patient"},
			row:           statusOnsetRow,
		}},
	}

	medicationsSection = sectionDef{
		Title:          "Medication History",
		Code:           "10160-0",
		Columns:        []string{"Type", "Medication", "Status", "Effective/Date", "Dosage"},
		EmptyNarrative: "No medications recorded.",
		Kinds: []factKind{
			{
				resourceType:  "MedicationStatement",
				subjectFields: []string{"subject"},
				prepare:       resolveMedication,
				row:           medicationRow("effectiveDateTime", "dosage"),
			},
			{
				resourceType:  "MedicationRequest",
				subjectFields: []string{"subject"},
				prepare:       resolveMedication,
				row:           medicationRow("authoredOn", "dosageInstruction"),
			},
			{
				resourceType:  "MedicationDispense",
				subjectFields: []string{"subject"},
				prepare:       resolveMedication,
				row:           medicationRow("whenHandedOver", "dosageInstruction"),
			},
			{
				resourceType:  "MedicationAdministration",
				subjectFields: []string{"subject"},
				prepare:       resolveMedication,
				row:           medicationAdministrationRow,
			},
		},
	}

	immunizationsSection = sectionDef{
		Title:          "Immunizations History",
		Code:           "11369-6",
		Columns:        []string{"Vaccine Code", "Occurrence Date"},
		EmptyNarrative: "No immunizations recorded.",
		Kinds: []factKind{{
			resourceType:    "Immunization",
			subjectFields:   []string{"patient"},
			occurrenceField: "occurrenceDateTime",
			row: func(r map[string]interface{}) []string {
				return []string{
					fhir.ConceptToken(fhir.MapAt(r, "vaccineCode")),
					fhir.DateOnly(fhir.Str(r, "occurrenceDateTime")),
				}
			},
		}},
	}

	proceduresSection = sectionDef{
		Title:          "Procedure History",
		Code:           "47519-4",
		Columns:        []string{"Procedure Code", "Performed Date", "Status"},
		EmptyNarrative: "No procedures recorded.",
		Kinds: []factKind{{
			resourceType:    "Procedure",
			subjectFields:   []string{"subject"},
			occurrenceField: "performedDateTime",
			prepare:         resolvePerformers,
			row: func(r map[string]interface{}) []string {
				return []string{
					fhir.ConceptToken(fhir.MapAt(r, "code")),
					fhir.DateOnly(fhir.Str(r, "performedDateTime")),
					fhir.Str(r, "status"),
				}
			},
		}},
	}

	patientStoryGoal = factKind{
		resourceType:  "Goal",
		subjectFields: []string{"subject", "expressedBy"},
	}
)

// buildSection runs the shared collection algorithm for one table section
// and returns the Composition section element. Entries and Provenance land
// on the canonical bundle as a side effect.
func (s *Service) buildSection(cb *CanonicalBundle, docs []*SourceDocument, patientID string, def sectionDef, cutoff *time.Time) map[string]interface{} {
	table := NewTableBuilder(def.Columns, def.EmptyNarrative)
	var entries []interface{}

	for _, doc := range docs {
		if doc.Excluded(s.settings.ExcludedDocumentSystem) {
			continue
		}
		st := &buildState{
			cb:          cb,
			doc:         doc,
			patientRef:  fhir.URNReference(patientID),
			medications: map[string]string{},
		}
		for _, entry := range doc.Bundle.Entry {
			for i := range def.Kinds {
				kind := &def.Kinds[i]
				if fhir.ResourceType(entry.Resource) != kind.resourceType {
					continue
				}
				if !withinLookback(entry.Resource, kind.occurrenceField, cutoff) {
					continue
				}
				fullURL := s.includeFact(st, kind, entry.Resource)
				entries = append(entries, map[string]interface{}{"reference": fullURL})
				if kind.row != nil {
					table.AddRow(kind.row(entry.Resource)...)
				}
			}
		}
	}

	section := map[string]interface{}{
		"title": def.Title,
		"code":  sectionCode(def.Code),
		"text":  narrativeText("generated", table.Render()),
	}
	if len(entries) > 0 {
		section["entry"] = entries
	} else {
		section["emptyReason"] = emptyReason()
	}
	return section
}

// includeFact copies one qualifying resource into the canonical bundle:
// patient references rewritten, kind-specific preparation applied, a fresh
// canonical id assigned, and a Provenance record synthesized.
func (s *Service) includeFact(st *buildState, kind *factKind, resource map[string]interface{}) string {
	fact := deepCopy(resource)
	for _, field := range kind.subjectFields {
		fact[field] = map[string]interface{}{"reference": st.patientRef}
	}
	if kind.prepare != nil {
		kind.prepare(st, fact)
	}
	fullURL := st.cb.Append(fact)
	s.addProvenance(st.cb, st.doc, fullURL)
	return fullURL
}

// withinLookback reports whether a resource passes the temporal filter.
// Resources without a parseable date are included; the filter only excludes
// facts known to predate the cutoff, and a date exactly on the cutoff stays.
func withinLookback(resource map[string]interface{}, field string, cutoff *time.Time) bool {
	if field == "" || cutoff == nil {
		return true
	}
	raw := fhir.Str(resource, field)
	if raw == "" {
		return true
	}
	occurred, ok := fhir.ParseDateTime(raw)
	if !ok {
		return true
	}
	return !occurred.Before(*cutoff)
}

// resolveMedication follows a medicationReference to the Medication resource
// in the same source document, adds it to the canonical bundle once per
// source id, and rewrites the reference to the canonical entry.
func resolveMedication(st *buildState, fact map[string]interface{}) {
	medRef := fhir.MapAt(fact, "medicationReference")
	if medRef == nil {
		return
	}
	id := localMedicationID(fhir.RefString(medRef))
	if id == "" {
		return
	}
	fullURL, seen := st.medications[id]
	if !seen {
		med := findMedication(st.doc, id)
		if med == nil {
			return
		}
		fullURL = st.cb.Append(deepCopy(med))
		st.medications[id] = fullURL
	}
	medRef["reference"] = fullURL
}

// localMedicationID extracts the document-local id from a medication
// reference, handling both "Medication/<id>" and contained "#<id>" forms.
func localMedicationID(ref string) string {
	switch {
	case strings.HasPrefix(ref, "Medication/"):
		return strings.TrimPrefix(ref, "Medication/")
	case strings.HasPrefix(ref, "#"):
		return strings.TrimPrefix(ref, "#")
	}
	return ""
}

func findMedication(doc *SourceDocument, id string) map[string]interface{} {
	for _, entry := range doc.Bundle.Entry {
		if fhir.ResourceType(entry.Resource) != "Medication" {
			continue
		}
		if fhir.Str(entry.Resource, "id") == id {
			return entry.Resource
		}
	}
	return nil
}

// resolvePerformers rewrites each procedure performer to a canonical actor:
// an identity-matched actor reuses its existing entry, anything else is
// copied in under a fresh canonical id.
func resolvePerformers(st *buildState, fact map[string]interface{}) {
	for _, item := range fhir.SliceAt(fact, "performer") {
		performer, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		actorRef := fhir.RefString(fhir.MapAt(performer, "actor"))
		if actorRef == "" {
			continue
		}
		actor := st.doc.Bundle.ResourceByFullURL(actorRef)
		if actor == nil {
			continue
		}
		fullURL, found := FindActor(actor, st.cb)
		if !found {
			fullURL = st.cb.Append(deepCopy(actor))
		}
		performer["actor"] = map[string]interface{}{"reference": fullURL}
	}
}

// buildPatientStory assembles the free-text section: Goal resources are
// collected like any other fact, and narrative fragments are copied from the
// matching section of each source Composition.
func (s *Service) buildPatientStory(cb *CanonicalBundle, docs []*SourceDocument, patientID string) map[string]interface{} {
	var entries []interface{}
	var fragments []string

	for _, doc := range docs {
		if doc.Excluded(s.settings.ExcludedDocumentSystem) {
			continue
		}
		st := &buildState{
			cb:         cb,
			doc:        doc,
			patientRef: fhir.URNReference(patientID),
		}
		for _, entry := range doc.Bundle.Entry {
			switch fhir.ResourceType(entry.Resource) {
			case "Goal":
				kind := patientStoryGoal
				fullURL := s.includeFact(st, &kind, entry.Resource)
				entries = append(entries, map[string]interface{}{"reference": fullURL})
			case "Composition":
				fragments = append(fragments, storyFragments(entry.Resource)...)
			}
		}
	}

	section := map[string]interface{}{
		"title": "Patient Story",
		"code":  sectionCode(patientStoryCode),
	}
	if len(entries) > 0 || len(fragments) > 0 {
		section["text"] = narrativeText("additional", xhtmlDivOpen+strings.Join(fragments, "")+"</div>")
		if len(entries) > 0 {
			section["entry"] = entries
		}
	} else {
		section["emptyReason"] = emptyReason()
		section["text"] = narrativeText("additional", xhtmlDivOpen+"No patient story recorded."+"</div>")
	}
	return section
}

// storyFragments returns the narrative div of every patient-story section
// of one source Composition.
func storyFragments(composition map[string]interface{}) []string {
	var fragments []string
	for _, item := range fhir.SliceAt(composition, "section") {
		sec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if !fhir.HasCoding(fhir.MapAt(sec, "code"), loincSystem, patientStoryCode) {
			continue
		}
		if div := fhir.Str(fhir.MapAt(sec, "text"), "div"); div != "" {
			fragments = append(fragments, div)
		}
	}
	return fragments
}

func sectionCode(code string) map[string]interface{} {
	return map[string]interface{}{
		"coding": []interface{}{
			map[string]interface{}{"system": loincSystem, "code": code},
		},
	}
}

func emptyReason() map[string]interface{} {
	return map[string]interface{}{
		"coding": []interface{}{
			map[string]interface{}{"system": emptyReasonSystem, "code": "unavailable"},
		},
		"text": "No information available.",
	}
}

// statusOnsetRow renders the shared Condition/AllergyIntolerance row shape.
func statusOnsetRow(r map[string]interface{}) []string {
	return []string{
		fhir.ConceptText(fhir.MapAt(r, "code")),
		fhir.FirstCodingCode(fhir.MapAt(r, "clinicalStatus")),
		fhir.FirstCodingCode(fhir.MapAt(r, "verificationStatus")),
		onsetValue(r),
	}
}

func onsetValue(r map[string]interface{}) string {
	if v := fhir.Str(r, "onsetDateTime"); v != "" {
		return v
	}
	return fhir.Str(r, "onsetString")
}

// medicationRow builds the row func for medication kinds whose dosage lives
// in a repeating element; the effective date field varies per kind.
func medicationRow(effectiveField, dosageField string) func(map[string]interface{}) []string {
	return func(r map[string]interface{}) []string {
		return []string{
			fhir.ResourceType(r),
			medicationDisplay(r),
			fhir.Str(r, "status"),
			fhir.Str(r, effectiveField),
			fhir.Str(fhir.FirstMap(r, dosageField), "text"),
		}
	}
}

// medicationAdministrationRow differs in that dosage is a single element.
func medicationAdministrationRow(r map[string]interface{}) []string {
	return []string{
		fhir.ResourceType(r),
		medicationDisplay(r),
		fhir.Str(r, "status"),
		fhir.Str(r, "effectiveDateTime"),
		fhir.Str(fhir.MapAt(r, "dosage"), "text"),
	}
}

func medicationDisplay(r map[string]interface{}) string {
	if ref := fhir.MapAt(r, "medicationReference"); ref != nil {
		return fhir.Str(ref, "display")
	}
	return fhir.ConceptText(fhir.MapAt(r, "medicationCodeableConcept"))
}
