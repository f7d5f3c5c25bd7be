package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/config"
	"github.com/metaforge-dev/metaforge/internal/cli/ui"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/provider/postgres"
	"github.com/metaforge-dev/metaforge/internal/provider/sqlitestore"
)

// providerTables are the tables the SQL providers create, in DDL order.
var providerTables = []string{
	"mf_types",
	"mf_property_details",
	"mf_enums",
	"mf_instances",
}

var migrateSeed string

// sqlProvider is the surface both SQL backends expose to the migrate
// command.
type sqlProvider interface {
	provider.Provider
	Migrate(ctx context.Context) error
	ImportSeed(ctx context.Context, seed *provider.Seed) error
	Close() error
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Provider schema commands",
		Long: `Create and inspect the daemon's provider tables.

The postgres and sqlite drivers store descriptors and instances in a
fixed set of tables. "migrate up" creates them (idempotently) and can
load a schema seed file; "migrate status" reports what is there.

The memory driver needs no migrations: point provider.seed_file at a
schema file and it loads at startup.

Available subcommands:
  up     - Create the provider tables, optionally loading a seed
  status - Show table presence and row counts`,
	}

	cmd.AddCommand(newMigrateUpCommand())
	cmd.AddCommand(newMigrateStatusCommand())

	return cmd
}

func newMigrateUpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create the provider tables",
		Long: `Create the provider tables if they do not exist.

With --seed, the given schema file's type descriptors, property
details, and enum sets are imported in one transaction after the
tables are in place.`,
		RunE: runMigrateUp,
	}

	cmd.Flags().StringVar(&migrateSeed, "seed", "", "Schema seed file to import after migrating")

	return cmd
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	prov, err := openSQLProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer prov.Close()

	err = ui.WithSpinner(out, "Creating provider tables", color.NoColor, func() error {
		return prov.Migrate(ctx)
	})
	if err != nil {
		return err
	}

	if migrateSeed != "" {
		seed, err := provider.LoadSeedFile(migrateSeed)
		if err != nil {
			return err
		}
		err = ui.WithSpinner(out, fmt.Sprintf("Importing %s", migrateSeed), color.NoColor, func() error {
			return prov.ImportSeed(ctx, seed)
		})
		if err != nil {
			return err
		}
		infoColor.Fprintf(out, "  %d types, %d enums\n", len(seed.Types), len(seed.Enums))
	}

	successColor.Fprintln(out, "✓ Provider schema is up to date")
	return nil
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show provider schema status",
		Long:  "Display which provider tables exist and how many rows each holds",
		RunE:  runMigrateStatus,
	}
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	warningColor := color.New(color.FgYellow)
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Provider.Driver == "memory" {
		warningColor.Fprintln(out, "The memory driver keeps no tables; nothing to report")
		return nil
	}

	db, dialect, err := openRawDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	table := ui.NewTable(out, []string{"Table", "Status", "Rows"}, &ui.TableOptions{NoColor: color.NoColor})
	missing := 0
	for _, name := range providerTables {
		exists, err := tableExists(ctx, db, dialect, name)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", name, err)
		}
		if !exists {
			missing++
			table.AddRow(name, "missing", "-")
			continue
		}

		var rows int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&rows); err != nil {
			return fmt.Errorf("failed to count %s: %w", name, err)
		}
		table.AddRow(name, "present", strconv.Itoa(rows))
	}

	table.Render()
	if missing > 0 {
		warningColor.Fprintf(out, "%d table(s) missing; run: metaforge migrate up\n", missing)
	}
	return nil
}

// openSQLProvider opens the configured SQL-backed provider. The memory
// driver is rejected here: it has no migrations to run.
func openSQLProvider(ctx context.Context, cfg *config.Config) (sqlProvider, error) {
	switch cfg.Provider.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg.DSN())
	case "sqlite":
		return sqlitestore.Open(ctx, cfg.DSN())
	case "memory":
		return nil, fmt.Errorf("the memory driver has no migrations; set provider.seed_file to load a schema at startup")
	default:
		return nil, fmt.Errorf("unknown provider driver %q", cfg.Provider.Driver)
	}
}

// openRawDB opens a plain database handle for status queries. Both
// drivers are registered by the provider packages.
func openRawDB(cfg *config.Config) (*sql.DB, string, error) {
	switch cfg.Provider.Driver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DSN())
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		return db, "postgres", nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.DSN())
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		return db, "sqlite", nil
	default:
		return nil, "", fmt.Errorf("unknown provider driver %q", cfg.Provider.Driver)
	}
}

func tableExists(ctx context.Context, db *sql.DB, dialect, name string) (bool, error) {
	var query string
	switch dialect {
	case "postgres":
		query = `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1`
	case "sqlite":
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	default:
		return false, fmt.Errorf("unknown dialect %q", dialect)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
