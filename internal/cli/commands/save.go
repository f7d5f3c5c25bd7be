package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
)

var saveParams []string

// NewSaveCommand creates the save command
func NewSaveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save TYPE NAME",
		Short: "Update properties of an existing object",
		Long: `Apply property updates to an existing object and persist it.

Updates are validated together against the type's schema; on any
failure the object is left exactly as it was.

Examples:
  metaforge save Form contact --param Title="Contact us"
  metaforge save Report weekly --param Status=Review`,
		Args: cobra.ExactArgs(2),
		RunE: runSave,
	}

	cmd.Flags().StringArrayVarP(&saveParams, "param", "p", nil, "Property update as key=value (repeatable)")

	return cmd
}

func runSave(cmd *cobra.Command, args []string) error {
	typeName, name := args[0], args[1]

	props, err := parseParams(saveParams)
	if err != nil {
		return err
	}
	if len(props) == 0 {
		return fmt.Errorf("nothing to save; pass at least one --param key=value")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := connect(cmd, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Save(cmd.Context(), typeName, name, props); err != nil {
		if isNotFound(err) {
			fmt.Fprint(cmd.ErrOrStderr(), ui.ObjectNotFoundError(typeName, name, color.NoColor))
			return fmt.Errorf("no %s named %s", typeName, name)
		}
		return renderCallError(cmd, err)
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Saved %s '%s'", typeName, name), color.NoColor)
	return nil
}
