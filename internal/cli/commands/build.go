package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
)

var (
	buildVersion string
	buildCreate  bool
	buildParams  []string
)

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build PATTERN TYPE NAME",
		Short: "Materialize a pattern into a container object",
		Long: `Build the named pattern's element hierarchy inside an existing
container object. Elements that cannot be created are skipped and
reported; the rest of the build still lands.

The container must exist first; pass --create to create it on the fly
(with --param for its creation parameters).

Building does not enforce the pattern's rules. Run
'metaforge validate' afterwards for that.

Examples:
  metaforge build contact_form Form contact
  metaforge build contact_form Form contact --create --param name=contact
  metaforge build contact_form Form contact --version 2.0`,
		Args: cobra.ExactArgs(3),
		RunE: runBuild,
	}

	cmd.Flags().StringVar(&buildVersion, "version", "", "Pattern version (default: the library's first version)")
	cmd.Flags().BoolVar(&buildCreate, "create", false, "Create the container before building")
	cmd.Flags().StringArrayVarP(&buildParams, "param", "p", nil, "Creation parameter for --create as key=value (repeatable)")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	patternName, typeName, name := args[0], args[1], args[2]
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

	ctx := cmd.Context()

	if buildCreate {
		params, err := parseParams(buildParams)
		if err != nil {
			return err
		}
		if params == nil {
			params = map[string]any{}
		}
		if _, ok := params["name"]; !ok {
			params["name"] = name
		}
		if _, err := c.Create(ctx, typeName, params); err != nil {
			return renderCallError(cmd, err)
		}
		ui.WriteSuccess(out, fmt.Sprintf("Created %s '%s'", typeName, name), color.NoColor)
	}

	result, err := c.BuildPattern(ctx, patternName, buildVersion, typeName, name)
	if err != nil {
		return renderPatternCallError(cmd, c, err, patternName, typeName, name)
	}

	report := result.Report
	if report == nil {
		ui.WriteSuccess(out, fmt.Sprintf("Built %s %s into %s '%s'", result.Pattern, result.Version, typeName, name), color.NoColor)
		return nil
	}

	if report.Partial {
		warn := color.New(color.FgYellow, color.Bold)
		warn.Fprintf(out, "⚠ Partial build of %s %s: %d element(s) created, %d skipped\n",
			result.Pattern, result.Version, report.Created, len(report.Skipped))
	} else {
		ui.WriteSuccess(out, fmt.Sprintf("Built %s %s: %d element(s) created",
			result.Pattern, result.Version, report.Created), color.NoColor)
	}

	if len(report.CreatedNames) > 0 {
		fmt.Fprintln(out, "\nCreated:")
		list := ui.NewList(out, ui.ListOptions{NoColor: color.NoColor})
		for _, n := range report.CreatedNames {
			list.AddItem(n)
		}
		list.Render()
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintln(out, "\nSkipped:")
		warn := color.New(color.FgYellow)
		for _, s := range report.Skipped {
			warn.Fprintf(out, "  • %s: %s\n", s.Type, s.Reason)
		}
	}

	return nil
}
