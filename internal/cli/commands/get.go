package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
)

// NewGetCommand creates the get command
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TYPE NAME",
		Short: "Print an object's stored record as JSON",
		Long: `Load an existing object and print its stored record: properties
plus nested collections. The output is JSON, suitable for piping.

For a bounded, human-oriented view of large objects use
'metaforge inspect' instead.

Examples:
  metaforge get Form contact
  metaforge get Form contact | jq .properties`,
		Args: cobra.ExactArgs(2),
		RunE: runGet,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	typeName, name := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := connect(cmd, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	rec, err := c.Get(cmd.Context(), typeName, name)
	if err != nil {
		if isNotFound(err) {
			fmt.Fprint(cmd.ErrOrStderr(), ui.ObjectNotFoundError(typeName, name, color.NoColor))
			return fmt.Errorf("no %s named %s", typeName, name)
		}
		return renderCallError(cmd, err)
	}

	return printJSON(cmd.OutOrStdout(), rec)
}
