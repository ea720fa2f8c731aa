package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema DDL. All statements are idempotent
// (CREATE ... IF NOT EXISTS), so re-running is safe.
func (d *Database) Migrate(ctx context.Context) error {
	// No bind parameters, so pgx uses the simple protocol and the whole
	// script executes as one multi-statement batch.
	if _, err := d.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	log.Info().Msg("schema migration applied")
	return nil
}
