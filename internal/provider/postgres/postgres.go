// Package postgres implements a metadata and instance provider backed by
// PostgreSQL. Type descriptors and instance records are stored as JSONB
// documents so the schema survives descriptor evolution without migrations;
// enum candidate lists use a native text[] column.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/schema"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// Provider serves descriptors, property details, enum candidates, and
// instance records from PostgreSQL. It is safe for concurrent use; all
// synchronization is delegated to database/sql's connection pool.
type Provider struct {
	db *sql.DB
}

// Open connects to the database at url and returns a Provider. The
// connection is verified with a ping so that a bad URL fails here rather
// than on the first request.
func Open(ctx context.Context, url string) (*Provider, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", classifyError(err))
	}

	return &Provider{db: db}, nil
}

// New wraps an existing database handle. Used by tests and by callers that
// manage the pool themselves.
func New(db *sql.DB) *Provider {
	return &Provider{db: db}
}

// Close releases the underlying connection pool.
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
		"SELECT descriptor FROM mf_types WHERE name = $1", name).Scan(&raw)
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
// A type with no recorded details yields an empty slice; an unknown type
// yields ErrNotFound so callers can distinguish the two.
func (p *Provider) PropertyDetails(ctx context.Context, typeName string) ([]schema.PropertyDetail, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM mf_types WHERE name = $1)", typeName).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check type %s: %w", typeName, classifyError(err))
	}
	if !exists {
		return nil, fmt.Errorf("type %s: %w", typeName, provider.ErrNotFound)
	}

	rows, err := p.db.QueryContext(ctx,
		"SELECT property, label, description FROM mf_property_details WHERE type_name = $1 ORDER BY property",
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

// EnumValues returns the candidate list stored for the enum name.
func (p *Provider) EnumValues(ctx context.Context, name string) ([]string, error) {
	var values []string
	err := p.db.QueryRowContext(ctx,
		"SELECT candidates FROM mf_enums WHERE name = $1", name).Scan(pq.Array(&values))
	if err != nil {
		return nil, fmt.Errorf("failed to load enum %s: %w", name, classifyError(err))
	}

	return values, nil
}

// SaveInstance upserts the record keyed by (type, name). The full record,
// nested collections included, is serialized as one JSONB document.
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
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (type_name, name)
		DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()`,
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
		"SELECT record FROM mf_instances WHERE type_name = $1 AND name = $2",
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

// DeleteInstance removes the record keyed by (typeName, name) and reports
// whether a row was actually deleted.
func (p *Provider) DeleteInstance(ctx context.Context, typeName, name string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		"DELETE FROM mf_instances WHERE type_name = $1 AND name = $2", typeName, name)
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
		"SELECT name FROM mf_instances WHERE type_name = $1 ORDER BY name", typeName)
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
// taxonomy. Connection-class PostgreSQL errors and network failures map to
// ErrUnavailable; missing rows map to ErrNotFound.
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

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "53300", // too_many_connections
			"57P01", // admin_shutdown
			"57P02", // crash_shutdown
			"57P03": // cannot_connect_now
			return fmt.Errorf("%w: %s", provider.ErrUnavailable, pgErr.Message)
		}
		// Class 08 covers connection exceptions.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return fmt.Errorf("%w: %s", provider.ErrUnavailable, pgErr.Message)
		}
	}

	return err
}
