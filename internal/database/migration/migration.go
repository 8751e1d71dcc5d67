package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_verification_records",
		SQL: `CREATE TABLE IF NOT EXISTS verification_records (
  id               UUID             PRIMARY KEY,
  status           TEXT             NOT NULL CHECK (status IN ('verified', 'rejected', 'needs_review')),
  document_type    TEXT             NOT NULL,
  confidence_score DOUBLE PRECISION NOT NULL CHECK (confidence_score >= 0 AND confidence_score <= 1),
  extracted_fields JSONB            NOT NULL DEFAULT '{}'::jsonb,
  checks           JSONB            NOT NULL DEFAULT '[]'::jsonb,
  reason           TEXT             NOT NULL DEFAULT '',
  created_at       TIMESTAMPTZ      NOT NULL
);`,
	},
	{
		Name: "create_index_verification_records_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_verification_records_status ON verification_records (status);`,
	},
	{
		Name: "create_index_verification_records_document_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_verification_records_document_type ON verification_records (document_type);`,
	},
	{
		Name: "create_index_verification_records_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_verification_records_created_at ON verification_records (created_at);`,
	},
}

// EnsureMigrated creates the schema when the verification_records table is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public.verification_records') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"msg", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
