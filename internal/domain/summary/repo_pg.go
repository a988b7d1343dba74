package summary

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mhr/summary/internal/platform/fhir"
)

type repoPG struct {
	pool      *pgxpool.Pool
	ihiSystem string
}

// NewPatientRepo returns the Postgres-backed identity search. Patient
// resources are stored as JSONB alongside the demographic columns the
// exact-match search filters on.
func NewPatientRepo(pool *pgxpool.Pool) PatientResolver {
	return &repoPG{pool: pool}
}

// NewDocumentRepo returns the Postgres-backed document search over the
// source_document store. Subject identifiers are matched under the given
// national identifier system.
func NewDocumentRepo(pool *pgxpool.Pool, ihiSystem string) DocumentFinder {
	return &repoPG{pool: pool, ihiSystem: ihiSystem}
}

func (r *repoPG) ResolvePatient(ctx context.Context, q PatientQuery) ([]map[string]interface{}, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT resource FROM patient_record
		WHERE identifier_system = $1 AND identifier_value = $2
		  AND birthdate = $3 AND lower(family) = lower($4) AND gender = $5`,
		q.IdentifierSystem, q.IdentifierValue, q.Birthdate, q.Family, q.Gender,
	)
	if err != nil {
		return nil, fmt.Errorf("patient search: %w", err)
	}
	defer rows.Close()

	var patients []map[string]interface{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("patient search scan: %w", err)
		}
		var patient map[string]interface{}
		if err := json.Unmarshal(raw, &patient); err != nil {
			return nil, fmt.Errorf("patient search decode: %w", err)
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}

func (r *repoPG) FindSourceDocuments(ctx context.Context, ihi string) ([]*SourceDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT resource FROM source_document
		WHERE bundle_type = 'document'
		  AND subject_identifier_system = $1 AND subject_identifier_value = $2
		ORDER BY created_at`,
		r.ihiSystem, ihi,
	)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}
	defer rows.Close()

	var docs []*SourceDocument
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("document search scan: %w", err)
		}
		bundle, err := fhir.ParseBundle(raw)
		if err != nil {
			return nil, fmt.Errorf("document search decode: %w", err)
		}
		docs = append(docs, &SourceDocument{Bundle: bundle})
	}
	return docs, rows.Err()
}
