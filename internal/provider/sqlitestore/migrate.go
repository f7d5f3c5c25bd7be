package sqlitestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/metaforge-dev/metaforge/internal/provider"
)

const ddl = `
CREATE TABLE IF NOT EXISTS mf_types (
    name       TEXT PRIMARY KEY,
    descriptor TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mf_property_details (
    type_name   TEXT NOT NULL,
    property    TEXT NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (type_name, property)
);

CREATE TABLE IF NOT EXISTS mf_enums (
    name       TEXT PRIMARY KEY,
    candidates TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mf_instances (
    type_name  TEXT NOT NULL,
    name       TEXT NOT NULL,
    record     TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
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

// ImportSeed loads a seed's descriptors, property details, and enums,
// replacing rows that already exist.
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
			VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET descriptor = excluded.descriptor`,
			desc.Name, raw)
		if err != nil {
			return fmt.Errorf("failed to import descriptor %s: %w", desc.Name, classifyError(err))
		}
	}

	for typeName, details := range seed.Details {
		for _, d := range details {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO mf_property_details (type_name, property, label, description)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(type_name, property) DO UPDATE SET
					label = excluded.label,
					description = excluded.description`,
				typeName, d.Property, d.Label, d.Description)
			if err != nil {
				return fmt.Errorf("failed to import details for %s.%s: %w",
					typeName, d.Property, classifyError(err))
			}
		}
	}

	for name, candidates := range seed.Enums {
		raw, err := json.Marshal(candidates)
		if err != nil {
			return fmt.Errorf("failed to encode enum %s: %w", name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO mf_enums (name, candidates)
			VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET candidates = excluded.candidates`,
			name, raw)
		if err != nil {
			return fmt.Errorf("failed to import enum %s: %w", name, classifyError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed import: %w", classifyError(err))
	}

	return nil
}
