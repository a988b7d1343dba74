package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the document-store tables consumed by the summary pipeline.
// patient_record indexes the demographics the identity search matches on;
// source_document indexes the subject identifier the document search matches
// on. Both keep the full FHIR payload as JSONB.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS patient_record (
		id UUID PRIMARY KEY,
		identifier_system TEXT NOT NULL,
		identifier_value TEXT NOT NULL,
		birthdate DATE NOT NULL,
		family TEXT NOT NULL,
		gender TEXT NOT NULL,
		resource JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patient_record_identifier
		ON patient_record (identifier_system, identifier_value)`,
	`CREATE TABLE IF NOT EXISTS source_document (
		id UUID PRIMARY KEY,
		bundle_type TEXT NOT NULL,
		subject_identifier_system TEXT,
		subject_identifier_value TEXT,
		resource JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_source_document_subject
		ON source_document (subject_identifier_system, subject_identifier_value)`,
}

// Migrate applies the document-store schema. Statements are idempotent so
// the command can run on every deploy.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
