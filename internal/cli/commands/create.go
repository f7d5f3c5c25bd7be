package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
)

var createParams []string

// NewCreateCommand creates the create command
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create TYPE",
		Short: "Create and persist a new object",
		Long: `Create an object of the given type from creation parameters.

All parameters are validated together: a failure reports every problem
at once and nothing is persisted. Use 'metaforge types TYPE' to see
which parameters a type accepts.

Examples:
  metaforge create Form --param name=contact
  metaforge create Form --param name=survey --param title="Customer survey"
  metaforge create Report --param name=weekly --param status=Draft`,
		Args: cobra.ExactArgs(1),
		RunE: runCreate,
	}

	cmd.Flags().StringArrayVarP(&createParams, "param", "p", nil, "Creation parameter as key=value (repeatable)")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	typeName := args[0]
	out := cmd.OutOrStdout()

	params, err := parseParams(createParams)
	if err != nil {
		return err
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

	ctx := cmd.Context()
	res, err := c.Create(ctx, typeName, params)
	if err != nil {
		if isNotFound(err) {
			suggestions := suggestTypes(ctx, c, typeName)
			fmt.Fprint(cmd.ErrOrStderr(), ui.TypeNotFoundError(typeName, suggestions, color.NoColor))
			return fmt.Errorf("unknown type %s", typeName)
		}
		return renderCallError(cmd, err)
	}

	ui.WriteSuccess(out, fmt.Sprintf("Created %s '%s'", res.Type, res.Name), color.NoColor)

	if len(res.Artifacts) > 0 {
		fmt.Fprintln(out, "\nArtifacts:")
		list := ui.NewList(out, ui.ListOptions{NoColor: color.NoColor})
		for _, a := range res.Artifacts {
			list.AddItem(a)
		}
		list.Render()
	}
	if len(res.Diagnostics) > 0 {
		warn := color.New(color.FgYellow)
		fmt.Fprintln(out)
		for _, d := range res.Diagnostics {
			warn.Fprintf(out, "  %s\n", d)
		}
	}

	return nil
}
