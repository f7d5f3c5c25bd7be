// Package sqlitestore implements a metadata and instance provider backed by
// an embedded SQLite database. It mirrors the postgres provider's layout
// with descriptors and instance records stored as JSON text, which makes it
// the zero-dependency option for local development and single-node
// deployments.
package sqlitestore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"

	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/schema"
)

// Provider serves descriptors, property details, enum candidates, and
// instance records from a SQLite database file.
type Provider struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database file at path.
func Open(ctx context.Context, path string) (*Provider, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a small pool with WAL keeps readers moving.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", classifyError(err))
	}

	return &Provider{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Provider {
	return &Provider{db: db}
}

// Close closes the database.
func (p *Provider) Close() error {
	return p.db.Close()
}

// TypeNames returns the names of all stored type descriptors, sorted.
func (p *Provider) TypeNames(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT name FROM mf_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list types: %w", classifyError(err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan type name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read type names: %w", classifyError(err))
	}

	return names, nil
}

// DescribeType loads the descriptor stored under name.
func (p *Provider) DescribeType(ctx context.Context, name string) (*schema.TypeDescriptor, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT descriptor FROM mf_types WHERE name = ?", name).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to describe type %s: %w", name, classifyError(err))
	}

	var desc schema.TypeDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor for %s: %w", name, err)
	}

	return &desc, nil
}

// PropertyDetails returns the label/description rows recorded for typeName.
func (p *Provider) PropertyDetails(ctx context.Context, typeName string) ([]schema.PropertyDetail, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM mf_types WHERE name = ?)", typeName).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check type %s: %w", typeName, classifyError(err))
	}
	if !exists {
		return nil, fmt.Errorf("type %s: %w", typeName, provider.ErrNotFound)
	}

	rows, err := p.db.QueryContext(ctx,
		"SELECT property, label, description FROM mf_property_details WHERE type_name = ? ORDER BY property",
		typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to load property details for %s: %w", typeName, classifyError(err))
	}
	defer rows.Close()

	var details []schema.PropertyDetail
	for rows.Next() {
		var d schema.PropertyDetail
		if err := rows.Scan(&d.Property, &d.Label, &d.Description); err != nil {
			return nil, fmt.Errorf("failed to scan property detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read property details: %w", classifyError(err))
	}

	return details, nil
}

// EnumValues returns the candidate list stored for the enum name. SQLite has
// no array type, so candidates live in a JSON text column.
func (p *Provider) EnumValues(ctx context.Context, name string) ([]string, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT candidates FROM mf_enums WHERE name = ?", name).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load enum %s: %w", name, classifyError(err))
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to decode enum %s: %w", name, err)
	}

	return values, nil
}

// SaveInstance upserts the record keyed by (type, name).
func (p *Provider) SaveInstance(ctx context.Context, rec *provider.InstanceRecord) error {
	if rec == nil || rec.Type == "" || rec.Name == "" {
		return errors.New("instance record requires a type and a name")
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode instance %s/%s: %w", rec.Type, rec.Name, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO mf_instances (type_name, name, record, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(type_name, name) DO UPDATE SET
			record = excluded.record,
			updated_at = CURRENT_TIMESTAMP`,
		rec.Type, rec.Name, raw)
	if err != nil {
		return fmt.Errorf("failed to save instance %s/%s: %w", rec.Type, rec.Name, classifyError(err))
	}

	return nil
}

// LoadInstance fetches the record keyed by (typeName, name).
func (p *Provider) LoadInstance(ctx context.Context, typeName, name string) (*provider.InstanceRecord, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT record FROM mf_instances WHERE type_name = ? AND name = ?",
		typeName, name).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load instance %s/%s: %w", typeName, name, classifyError(err))
	}

	var rec provider.InstanceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode instance %s/%s: %w", typeName, name, err)
	}

	return &rec, nil
}

// DeleteInstance removes the record keyed by (typeName, name).
func (p *Provider) DeleteInstance(ctx context.Context, typeName, name string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		"DELETE FROM mf_instances WHERE type_name = ? AND name = ?", typeName, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete instance %s/%s: %w", typeName, name, classifyError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	return affected > 0, nil
}

// ListInstances returns the names of stored instances of typeName, sorted.
func (p *Provider) ListInstances(ctx context.Context, typeName string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT name FROM mf_instances WHERE type_name = ? ORDER BY name", typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances of %s: %w", typeName, classifyError(err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan instance name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instance names: %w", classifyError(err))
	}

	return names, nil
}

// classifyError converts database-level failures into the provider error
// taxonomy.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return provider.ErrNotFound
	}

	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case 5, // SQLITE_BUSY
			6,  // SQLITE_LOCKED
			10, // SQLITE_IOERR
			14: // SQLITE_CANTOPEN
			return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
		}
	}

	return err
}
