package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
)

var validateVersion string

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate PATTERN TYPE NAME",
		Short: "Check a container against a pattern's rules",
		Long: `Validate an existing container object against the named pattern:
required elements must be present and every count and property rule
must hold.

Validation is separate from building on purpose. A partial build is
allowed to land; this command tells you whether the result actually
satisfies the pattern.

Examples:
  metaforge validate contact_form Form contact
  metaforge validate contact_form Form contact --version 2.0`,
		Args: cobra.ExactArgs(3),
		RunE: runValidate,
	}

	cmd.Flags().StringVar(&validateVersion, "version", "", "Pattern version (default: the library's first version)")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	valid, err := c.ValidatePattern(cmd.Context(), patternName, validateVersion, typeName, name)
	if err != nil {
		return renderPatternCallError(cmd, c, err, patternName, typeName, name)
	}

	if !valid {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(out, "❌ %s '%s' does not satisfy pattern %s\n", typeName, name, patternName)
		return fmt.Errorf("%s '%s' does not satisfy pattern %s", typeName, name, patternName)
	}

	ui.WriteSuccess(out, fmt.Sprintf("%s '%s' satisfies pattern %s", typeName, name, patternName), color.NoColor)
	return nil
}
