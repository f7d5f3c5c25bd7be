package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/ui"
	"github.com/metaforge-dev/metaforge/pkg/client"
)

var typesJSON bool

// NewTypesCommand creates the types command
func NewTypesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types [type-name]",
		Short: "List object types or show one type's schema",
		Long: `List the constructible object types the daemon serves.

With a type name, show the full schema: properties with their labels,
collections, and creation parameters.

Examples:
  metaforge types
  metaforge types Form
  metaforge types Form --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTypes,
	}

	cmd.Flags().BoolVar(&typesJSON, "json", false, "Emit raw JSON")

	return cmd
}

func runTypes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := connect(cmd, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if len(args) == 0 {
		return listTypes(cmd, c)
	}
	return showType(cmd, c, args[0])
}

func listTypes(cmd *cobra.Command, c *client.Client) error {
	out := cmd.OutOrStdout()

	names, err := c.ListTypes(cmd.Context())
	if err != nil {
		return renderCallError(cmd, err)
	}

	if typesJSON {
		return printJSON(out, map[string]any{"types": names})
	}

	ui.Header(out, "Registered Types", color.NoColor)
	list := ui.NewList(out, ui.ListOptions{NoColor: color.NoColor})
	for _, name := range names {
		list.AddItem(name)
	}
	list.Render()

	fmt.Fprintf(out, "\n%d type(s). Use 'metaforge types TYPE' for details.\n", len(names))
	return nil
}

func showType(cmd *cobra.Command, c *client.Client, typeName string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	info, err := c.GetType(ctx, typeName)
	if err != nil {
		if isNotFound(err) {
			suggestions := suggestTypes(ctx, c, typeName)
			fmt.Fprint(cmd.ErrOrStderr(), ui.TypeNotFoundError(typeName, suggestions, color.NoColor))
			return fmt.Errorf("unknown type %s", typeName)
		}
		return renderCallError(cmd, err)
	}

	if typesJSON {
		return printJSON(out, info)
	}

	// Labels and descriptions come from the batched detail lookup; the
	// descriptor itself may not carry them.
	details, err := c.GetPropertyDetails(ctx, typeName)
	if err != nil {
		details = nil
	}

	ui.Header(out, info.Name, color.NoColor)

	kv := ui.NewKeyValueTable(out, color.NoColor)
	if info.Namespace != "" {
		kv.Add("Namespace", info.Namespace)
	}
	if info.BaseType != "" {
		kv.Add("Base type", info.BaseType)
	}
	kv.Add("Constructible", strconv.FormatBool(info.Constructible))
	if info.ChildCollection != "" {
		kv.Add("Child collection", info.ChildCollection)
	}
	kv.Render()
	fmt.Fprintln(out)

	if len(info.Properties) > 0 {
		section := ui.NewSection(out, "Properties", color.NoColor)
		for _, p := range info.Properties {
			section.AddLine(formatProperty(p, details))
		}
		section.Render()
	}

	if len(info.Collections) > 0 {
		section := ui.NewSection(out, "Collections", color.NoColor)
		for _, col := range info.Collections {
			section.AddLine(fmt.Sprintf("%s: []%s", col.Name, col.ElementType))
		}
		section.Render()
	}

	if len(info.Parameters) > 0 {
		section := ui.NewSection(out, "Creation parameters", color.NoColor)
		for _, p := range info.Parameters {
			section.AddLine(formatParameter(p))
		}
		section.Render()
	}

	return nil
}

func formatProperty(p client.Property, details map[string]client.PropertyDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", p.Name, p.DataType)

	var flags []string
	if p.Kind == "enum" {
		flags = append(flags, "enum")
	}
	if p.Nullable {
		flags = append(flags, "nullable")
	}
	if p.ReadOnly {
		flags = append(flags, "read-only")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(flags, ", "))
	}

	label := p.Label
	if label == "" {
		if d, ok := details[p.Name]; ok {
			label = d.Label
		}
	}
	if label != "" {
		fmt.Fprintf(&b, " - %s", label)
	}
	return b.String()
}

func formatParameter(p client.Parameter) string {
	var b strings.Builder
	b.WriteString(p.Name)

	var notes []string
	if p.Required {
		notes = append(notes, "required")
	}
	if p.Default != nil {
		notes = append(notes, fmt.Sprintf("default %v", p.Default))
	}
	if p.Format != "" {
		notes = append(notes, fmt.Sprintf("format %s", p.Format))
	}
	if len(notes) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(notes, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(&b, " - %s", p.Description)
	}
	return b.String()
}
