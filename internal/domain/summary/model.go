package summary

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mhr/summary/internal/platform/fhir"
)

var (
	// ErrPatientNotFound reports that the identity search matched nothing.
	// The boundary layer decides the HTTP mapping.
	ErrPatientNotFound = errors.New("no patient matched the supplied identity")

	// ErrAmbiguousPatient reports that the identity search matched more
	// than one patient record.
	ErrAmbiguousPatient = errors.New("multiple patients found with the given criteria")
)

// Settings are the fixed identities and markers of the summary pipeline.
// Loaded once at startup and never mutated.
type Settings struct {
	ExcludedDocumentSystem string
	BundleProfile          string
	PatientProfile         string
	BundleIdentifierSystem string
	IHISystem              string
	Timezone               string
	ImmunizationLookback   int // years
	ProcedureLookback      int // years
}

// DefaultSettings returns the production identities of the MHR summary
// generator.
func DefaultSettings() Settings {
	return Settings{
		ExcludedDocumentSystem: "http://myportal.org",
		BundleProfile:          "http://ns.electronichealth.net.au/fhir/mhr/ps/sparked-testing/StructureDefinition/mhr-au-ps-bundle",
		PatientProfile:         "http://ns.electronichealth.net.au/fhir/mhr/ps/sparked-testing/StructureDefinition/mhr-au-ps-patient",
		BundleIdentifierSystem: "http://mhr-operator/fhir/identifier",
		IHISystem:              "http://ns.electronichealth.net.au/id/hi/ihi/1.0",
		Timezone:               "Australia/Sydney",
		ImmunizationLookback:   2,
		ProcedureLookback:      5,
	}
}

const (
	loincSystem        = "http://loinc.org"
	patientSummaryCode = "60591-5"
	patientStoryCode   = "81338-6"

	emptyReasonSystem      = "http://terminology.hl7.org/CodeSystem/list-empty-reason"
	participantTypeSystem  = "http://terminology.hl7.org/CodeSystem/provenance-participant-type"
	identifierTypeSystemV2 = "http://terminology.hl7.org/CodeSystem/v2-0203"

	deviceIdentifierSystem = "http://ns.electronichealth.net.au/id/pcehr/paid/1.0"
	deviceIdentifierValue  = "8003640003000026"
	deviceName             = "My Health Record"

	orgIdentifierSystem = "http://hl7.org.au/id/abn"
	orgIdentifierValue  = "84425496912"
	orgName             = "My Health Record system operator"
)

// SectionRequest is one requested optional section: a classification code
// and an optional lookback cutoff overriding the section default.
type SectionRequest struct {
	Code     string
	Lookback *time.Time
}

// SourceDocument is one previously stored document bundle: clinical
// resources led by a Composition describing authorship. Read-only input.
type SourceDocument struct {
	Bundle *fhir.Bundle
}

// Composition returns the document's leading Composition, or nil.
func (d *SourceDocument) Composition() map[string]interface{} {
	return d.Bundle.FirstResource("Composition")
}

// Excluded reports whether the document identifier system equals the
// configured exclusion marker. Excluded documents contribute nothing.
func (d *SourceDocument) Excluded(system string) bool {
	return d.Bundle.Identifier != nil && d.Bundle.Identifier.System == system
}

// Timestamp returns the document timestamp, or the zero time.
func (d *SourceDocument) Timestamp() time.Time {
	if d.Bundle.Timestamp == nil {
		return time.Time{}
	}
	return *d.Bundle.Timestamp
}

// CanonicalBundle accumulates the output document. Single writer per
// request; entries are appended and never removed.
type CanonicalBundle struct {
	bundle *fhir.Bundle
}

func newCanonicalBundle(settings Settings, now time.Time) *CanonicalBundle {
	ts := now
	return &CanonicalBundle{
		bundle: &fhir.Bundle{
			ResourceType: "Bundle",
			ID:           uuid.New().String(),
			Meta:         &fhir.Meta{Profile: []string{settings.BundleProfile}},
			Identifier: &fhir.Identifier{
				System: settings.BundleIdentifierSystem,
				Value:  uuid.New().String(),
			},
			Type:      "document",
			Timestamp: &ts,
		},
	}
}

// Append adds a resource under a fresh canonical identity: a new uuid
// becomes both the resource id and the urn:uuid fullUrl. Returns the fullUrl.
func (cb *CanonicalBundle) Append(resource map[string]interface{}) string {
	return cb.AppendAs(uuid.New().String(), resource)
}

// AppendAs adds a resource under a caller-chosen canonical id. The resource
// id is overwritten so it always equals the uuid suffix of its fullUrl.
func (cb *CanonicalBundle) AppendAs(id string, resource map[string]interface{}) string {
	resource["id"] = id
	fullURL := fhir.URNReference(id)
	cb.bundle.AddEntry(fullURL, resource)
	return fullURL
}

// AppendShared adds an actor resource under its original document-local
// reference, used when a provenance agent cannot be identity-matched.
// Re-adding the same fullUrl is a no-op, preserving entry uniqueness.
func (cb *CanonicalBundle) AppendShared(fullURL string, resource map[string]interface{}) {
	if cb.bundle.HasFullURL(fullURL) {
		return
	}
	cb.bundle.AddEntry(fullURL, resource)
}

// Entries exposes the accumulated entries for matching and assertions.
func (cb *CanonicalBundle) Entries() []fhir.BundleEntry {
	return cb.bundle.Entry
}

// Bundle returns the assembled document bundle.
func (cb *CanonicalBundle) Bundle() *fhir.Bundle {
	return cb.bundle
}

// deepCopy clones a map-backed resource so mutation of the copy never
// leaks into the read-only source document.
func deepCopy(resource map[string]interface{}) map[string]interface{} {
	if resource == nil {
		return nil
	}
	out := make(map[string]interface{}, len(resource))
	for k, v := range resource {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopy(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
