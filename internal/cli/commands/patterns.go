package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
)

var patternsJSON bool

// NewPatternsCommand creates the patterns command
func NewPatternsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the daemon's loaded patterns",
		Long: `List every pattern version the daemon has loaded from its pattern
directory.

Examples:
  metaforge patterns
  metaforge patterns --json`,
		RunE: runPatterns,
	}

	cmd.Flags().BoolVar(&patternsJSON, "json", false, "Emit raw JSON")

	return cmd
}

func runPatterns(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := connect(cmd, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	infos, err := c.ListPatterns(cmd.Context())
	if err != nil {
		return renderCallError(cmd, err)
	}

	if patternsJSON {
		return printJSON(out, map[string]any{"patterns": infos})
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No patterns loaded. Drop *.pattern.json files into the pattern directory.")
		return nil
	}

	table := ui.NewTable(out, []string{"Pattern", "Version", "Description"}, &ui.TableOptions{NoColor: color.NoColor})
	for _, info := range infos {
		table.AddRow(info.Name, info.Version, info.Description)
	}
	table.Render()

	fmt.Fprintf(out, "\n%d pattern version(s)\n", len(infos))
	return nil
}
