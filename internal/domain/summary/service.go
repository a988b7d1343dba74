package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mhr/summary/internal/platform/fhir"
)

const titleLayout = "02-January-2006 03:04 pm MST"

// Service assembles patient summary documents out of previously stored
// source documents. One instance serves all requests; per-request state
// lives in the CanonicalBundle.
type Service struct {
	settings  Settings
	patients  PatientResolver
	documents DocumentFinder
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(settings Settings, patients PatientResolver, documents DocumentFinder, log zerolog.Logger) *Service {
	return &Service{
		settings:  settings,
		patients:  patients,
		documents: documents,
		log:       log,
		now:       time.Now,
	}
}

// ResolveAndBuild locates the patient by demographic query and builds the
// summary. Zero matches yields ErrPatientNotFound, more than one
// ErrAmbiguousPatient; the caller owns the HTTP mapping for both.
func (s *Service) ResolveAndBuild(ctx context.Context, q PatientQuery, requests []SectionRequest) (*CanonicalBundle, error) {
	matches, err := s.patients.ResolvePatient(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, ErrPatientNotFound
	case 1:
		return s.BuildPatientSummary(ctx, matches[0], requests)
	default:
		return nil, ErrAmbiguousPatient
	}
}

// BuildPatientSummary runs the aggregation pipeline for one resolved
// patient: a Composition-led document bundle with the three mandatory
// sections and any recognized optional sections.
func (s *Service) BuildPatientSummary(ctx context.Context, patient map[string]interface{}, requests []SectionRequest) (*CanonicalBundle, error) {
	now := s.now()
	cb := newCanonicalBundle(s.settings, now)

	patientID := uuid.New().String()
	deviceID := uuid.New().String()
	orgID := uuid.New().String()
	compositionID := uuid.New().String()

	composition := s.newComposition(now, patientID, deviceID, orgID)
	cb.AppendAs(compositionID, composition)
	cb.AppendAs(patientID, s.canonicalPatient(patient))
	cb.AppendAs(deviceID, authoringDevice(orgID))
	cb.AppendAs(orgID, authoringOrganization())

	docs, err := s.findDocuments(ctx, patient)
	if err != nil {
		return nil, err
	}

	sections := []interface{}{
		s.buildSection(cb, docs, patientID, problemsSection, nil),
		s.buildSection(cb, docs, patientID, allergiesSection, nil),
		s.buildSection(cb, docs, patientID, medicationsSection, nil),
	}
	for _, req := range requests {
		switch req.Code {
		case immunizationsSection.Code:
			cutoff := resolveLookback(req, now.AddDate(-s.settings.ImmunizationLookback, 0, 0))
			sections = append(sections, s.buildSection(cb, docs, patientID, immunizationsSection, &cutoff))
		case proceduresSection.Code:
			cutoff := resolveLookback(req, now.AddDate(-s.settings.ProcedureLookback, 0, 0))
			sections = append(sections, s.buildSection(cb, docs, patientID, proceduresSection, &cutoff))
		case patientStoryCode:
			sections = append(sections, s.buildPatientStory(cb, docs, patientID))
		default:
			s.log.Debug().Str("code", req.Code).Msg("ignoring unrecognized section code")
		}
	}
	composition["section"] = sections

	return cb, nil
}

// findDocuments retrieves the patient's source documents by national
// correlation identifier. A patient without one simply has no documents;
// the summary still renders with empty sections.
func (s *Service) findDocuments(ctx context.Context, patient map[string]interface{}) ([]*SourceDocument, error) {
	ihi := fhir.IdentifierValue(patient, s.settings.IHISystem)
	if ihi == "" {
		s.log.Debug().Msg("patient carries no correlation identifier, summary will be empty")
		return nil, nil
	}
	docs, err := s.documents.FindSourceDocuments(ctx, ihi)
	if err != nil {
		return nil, fmt.Errorf("find source documents: %w", err)
	}
	return docs, nil
}

func resolveLookback(req SectionRequest, fallback time.Time) time.Time {
	if req.Lookback != nil {
		return *req.Lookback
	}
	return fallback
}

func (s *Service) newComposition(now time.Time, patientID, deviceID, orgID string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Composition",
		"status":       "final",
		"type": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{"system": loincSystem, "code": patientSummaryCode},
			},
		},
		"subject":   map[string]interface{}{"reference": fhir.URNReference(patientID)},
		"date":      now.Format("2006-01-02T15:04:05Z07:00"),
		"author":    []interface{}{map[string]interface{}{"reference": fhir.URNReference(deviceID)}},
		"custodian": map[string]interface{}{"reference": fhir.URNReference(orgID)},
		"title":     "MHR Generated Patient Summary - " + s.localizedTitleTime(now),
	}
}

func (s *Service) localizedTitleTime(now time.Time) string {
	loc, err := time.LoadLocation(s.settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format(titleLayout)
}

// canonicalPatient copies the resolved patient into the document shape: the
// summary profile and a generated demographics narrative.
func (s *Service) canonicalPatient(patient map[string]interface{}) map[string]interface{} {
	p := deepCopy(patient)
	p["meta"] = map[string]interface{}{
		"profile": []interface{}{s.settings.PatientProfile},
	}
	p["text"] = patientNarrative(patient)
	return p
}

func authoringDevice(orgID string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Device",
		"identifier": []interface{}{
			map[string]interface{}{"system": deviceIdentifierSystem, "value": deviceIdentifierValue},
		},
		"deviceName": []interface{}{
			map[string]interface{}{"name": deviceName, "type": "manufacturer-name"},
		},
		"owner": map[string]interface{}{"reference": fhir.URNReference(orgID)},
	}
}

func authoringOrganization() map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Organization",
		"identifier": []interface{}{
			map[string]interface{}{
				"type": map[string]interface{}{
					"coding": []interface{}{
						map[string]interface{}{"system": identifierTypeSystemV2, "code": "XX"},
					},
					"text": "Australian Business Number (ABN)",
				},
				"system": orgIdentifierSystem,
				"value":  orgIdentifierValue,
			},
		},
		"name": orgName,
		"telecom": []interface{}{
			map[string]interface{}{"system": "email", "value": "help@digitalhealth.gov.au", "use": "work"},
			map[string]interface{}{"system": "phone", "value": "1300 901 001", "use": "work"},
		},
		"address": []interface{}{
			map[string]interface{}{
				"line":       []interface{}{"Level 25, 175 Liverpool Street"},
				"city":       "Sydney",
				"state":      "NSW",
				"postalCode": "2000",
				"country":    "Australia",
			},
		},
	}
}
