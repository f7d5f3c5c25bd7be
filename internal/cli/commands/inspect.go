package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
	"github.com/metaforge-dev/metaforge/pkg/client"
)

var (
	inspectMode       string
	inspectCollection string
	inspectJSON       bool
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect TYPE NAME",
		Short: "Show a bounded report of an object's state",
		Long: `Inspect an object without loading its whole graph: property values,
collection sizes, and enum candidates, all capped server-side so the
output stays usable for any object.

Modes:
  summary     - Identity and counts only
  properties  - Property values, skipping collections
  full        - Properties plus every collection (default)

Use --collection to focus on a single collection instead.

Examples:
  metaforge inspect Form contact
  metaforge inspect Form contact --mode summary
  metaforge inspect Form contact --collection Items
  metaforge inspect Form contact --json`,
		Args: cobra.ExactArgs(2),
		RunE: runInspect,
	}

	cmd.Flags().StringVarP(&inspectMode, "mode", "m", "", "Report mode (summary, properties, full)")
	cmd.Flags().StringVar(&inspectCollection, "collection", "", "Focus on one collection")
	cmd.Flags().BoolVar(&inspectJSON, "json", false, "Emit the raw report as JSON")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	typeName, name := args[0], args[1]
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
	var report *client.InspectionReport
	if inspectCollection != "" {
		report, err = c.InspectCollection(ctx, typeName, name, inspectCollection)
	} else {
		report, err = c.Inspect(ctx, typeName, name, inspectMode)
	}
	if err != nil {
		if isNotFound(err) {
			suggestions := suggestTypes(ctx, c, typeName)
			fmt.Fprint(cmd.ErrOrStderr(), ui.TypeNotFoundError(typeName, suggestions, color.NoColor))
			return fmt.Errorf("unknown type %s", typeName)
		}
		return renderCallError(cmd, err)
	}

	if inspectJSON {
		return printJSON(out, report)
	}

	if !report.Found {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ObjectNotFoundError(typeName, name, color.NoColor))
		if report.Error != "" {
			return fmt.Errorf("%s", report.Error)
		}
		return fmt.Errorf("no %s named %s", typeName, name)
	}

	renderReport(out, report)
	return nil
}

func renderReport(out io.Writer, report *client.InspectionReport) {
	ui.Header(out, fmt.Sprintf("%s '%s'", report.Type, report.Name), color.NoColor)

	kv := ui.NewKeyValueTable(out, color.NoColor)
	kv.Add("Properties", fmt.Sprintf("%d", report.PropertiesCount))
	kv.Add("Collections", fmt.Sprintf("%d item(s) total", report.CollectionsTotal))
	if report.Truncated {
		kv.Add("Truncated", "yes (bounded view)")
	}
	kv.Render()
	fmt.Fprintln(out)

	if len(report.Properties) > 0 {
		section := ui.NewSection(out, "Properties", color.NoColor)
		for _, p := range report.Properties {
			section.AddLine(formatPropertyView(p))
		}
		section.Render()
	}

	if len(report.Collections) > 0 {
		names := make([]string, 0, len(report.Collections))
		for name := range report.Collections {
			names = append(names, name)
		}
		sort.Strings(names)

		section := ui.NewSection(out, "Collections", color.NoColor)
		for _, name := range names {
			col := report.Collections[name]
			line := fmt.Sprintf("%s: []%s - %d item(s)", name, col.ElementType, col.Count)
			if col.Capped {
				line += " (list capped)"
			}
			if col.Error != "" {
				line += " " + color.RedString("[%s]", col.Error)
			}
			section.AddLine(line)
			for _, item := range col.Items {
				section.AddLine("  - " + item)
			}
		}
		section.Render()
	}
}

func formatPropertyView(p client.PropertyView) string {
	var b strings.Builder

	name := p.Name
	if p.Label != "" {
		name = fmt.Sprintf("%s (%s)", p.Name, p.Label)
	}
	fmt.Fprintf(&b, "%s = %s", name, formatValue(p.Value))

	var flags []string
	if p.Kind == "enum" && len(p.EnumValues) > 0 {
		flags = append(flags, "one of: "+strings.Join(p.EnumValues, ", "))
	}
	if p.ReadOnly {
		flags = append(flags, "read-only")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(flags, "; "))
	}

	if p.Error != "" {
		b.WriteString(" ")
		b.WriteString(color.RedString("[error: %s]", p.Error))
	}
	return b.String()
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
