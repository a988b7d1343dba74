package summary

import (
	"context"
)

// PatientQuery is the exact-match demographic search the summary endpoint
// accepts. All four criteria must match.
type PatientQuery struct {
	IdentifierSystem string
	IdentifierValue  string
	Birthdate        string
	Family           string
	Gender           string
}

// PatientResolver is the patient-identity search index. Results are full
// Patient resources; zero, one, or many may match.
type PatientResolver interface {
	ResolvePatient(ctx context.Context, q PatientQuery) ([]map[string]interface{}, error)
}

// DocumentFinder is the document-bundle search index: all stored document
// bundles whose leading Composition subject carries the given national
// identifier.
type DocumentFinder interface {
	FindSourceDocuments(ctx context.Context, ihi string) ([]*SourceDocument, error)
}
