package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/metaforge-dev/metaforge/internal/provider"
)

// ddl creates the provider tables. Kept idempotent so Migrate can run on
// every startup without tracking versions.
const ddl = `
CREATE TABLE IF NOT EXISTS mf_types (
    name       VARCHAR(255) PRIMARY KEY,
    descriptor JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS mf_property_details (
    type_name   VARCHAR(255) NOT NULL,
    property    VARCHAR(255) NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (type_name, property)
);

CREATE TABLE IF NOT EXISTS mf_enums (
    name       VARCHAR(255) PRIMARY KEY,
    candidates TEXT[] NOT NULL
);

CREATE TABLE IF NOT EXISTS mf_instances (
    type_name  VARCHAR(255) NOT NULL,
    name       VARCHAR(255) NOT NULL,
    record     JSONB NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    PRIMARY KEY (type_name, name)
);

CREATE INDEX IF NOT EXISTS idx_mf_instances_type ON mf_instances (type_name);
`

// Migrate creates the provider tables if they do not exist.
func (p *Provider) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create provider tables: %w", classifyError(err))
	}
	return nil
}

// ImportSeed loads a seed's descriptors, property details, and enums into
// the provider tables, replacing rows that already exist. The whole import
// runs in one transaction so a half-loaded catalog is never visible.
func (p *Provider) ImportSeed(ctx context.Context, seed *provider.Seed) error {
	if seed == nil {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start seed import: %w", classifyError(err))
	}
	defer tx.Rollback()

	for _, desc := range seed.Types {
		raw, err := json.Marshal(desc)
		if err != nil {
			return fmt.Errorf("failed to encode descriptor %s: %w", desc.Name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO mf_types (name, descriptor)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET descriptor = EXCLUDED.descriptor`,
			desc.Name, raw)
		if err != nil {
			return fmt.Errorf("failed to import descriptor %s: %w", desc.Name, classifyError(err))
		}
	}

	for typeName, details := range seed.Details {
		for _, d := range details {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO mf_property_details (type_name, property, label, description)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (type_name, property)
				DO UPDATE SET label = EXCLUDED.label, description = EXCLUDED.description`,
				typeName, d.Property, d.Label, d.Description)
			if err != nil {
				return fmt.Errorf("failed to import details for %s.%s: %w",
					typeName, d.Property, classifyError(err))
			}
		}
	}

	for name, candidates := range seed.Enums {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO mf_enums (name, candidates)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET candidates = EXCLUDED.candidates`,
			name, pq.Array(candidates))
		if err != nil {
			return fmt.Errorf("failed to import enum %s: %w", name, classifyError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed import: %w", classifyError(err))
	}

	return nil
}
