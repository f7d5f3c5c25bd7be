package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
)

var deleteYes bool

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete TYPE NAME",
		Short: "Delete an existing object",
		Long: `Delete an object from the store. Asks for confirmation unless
--yes is given.

Objects referenced from other objects' collections are not followed:
only the named object is removed.

Examples:
  metaforge delete Form contact
  metaforge delete Form contact --yes`,
		Args: cobra.ExactArgs(2),
		RunE: runDelete,
	}

	cmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	typeName, name := args[0], args[1]

	if !deleteYes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Delete %s '%s'?", typeName, name),
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
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

	if err := c.Delete(cmd.Context(), typeName, name); err != nil {
		if isNotFound(err) {
			fmt.Fprint(cmd.ErrOrStderr(), ui.ObjectNotFoundError(typeName, name, color.NoColor))
			return fmt.Errorf("no %s named %s", typeName, name)
		}
		return renderCallError(cmd, err)
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted %s '%s'", typeName, name), color.NoColor)
	return nil
}
