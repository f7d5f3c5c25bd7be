package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/scaffold"
)

var (
	initTemplate string
	initDefaults bool
	initList     bool
	initVars     []string
)

// validateProjectName validates project name with security checks
func validateProjectName(name string) error {
	name = strings.TrimSpace(name)

	// Check length
	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("project name must be 1-100 characters")
	}

	// Check for absolute paths
	if filepath.IsAbs(name) {
		return fmt.Errorf("project name cannot be an absolute path")
	}

	// Only allow alphanumeric, dash, and underscore
	// This regex already prevents dots (including ".."), so no additional check needed
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, name)
	if !matched {
		return fmt.Errorf("project name can only contain letters, numbers, dashes, and underscores")
	}

	return nil
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [project-name]",
		Short: "Create a new metaforge project",
		Long: `Create a new metaforge project with config, schema, and patterns.

If no project name is provided, you will be prompted to enter one.

Templates:
  standard - Memory-backed daemon with a sample schema and pattern
  postgres - PostgreSQL-backed daemon with an HTTP gateway
  service  - Shared daemon: Unix socket, Redis cache, optional auth

Examples:
  metaforge init my-designer
  metaforge init my-designer --template postgres
  metaforge init my-designer --defaults
  metaforge init my-designer --defaults --var dsn=postgres://localhost/forms`,
		RunE: runInit,
	}

	cmd.Flags().StringVarP(&initTemplate, "template", "t", "", "Project template (standard, postgres, service)")
	cmd.Flags().BoolVar(&initDefaults, "defaults", false, "Accept template defaults instead of prompting")
	cmd.Flags().BoolVar(&initList, "list", false, "List available templates")
	cmd.Flags().StringArrayVar(&initVars, "var", nil, "Template variable as name=value (repeatable)")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	promptColor := color.New(color.FgYellow)
	out := cmd.OutOrStdout()

	if err := scaffold.RegisterBuiltins(); err != nil {
		return fmt.Errorf("failed to register templates: %w", err)
	}
	registry := scaffold.DefaultRegistry()

	if initList {
		for _, tmpl := range registry.List() {
			infoColor.Fprintf(out, "%-10s", tmpl.Name)
			fmt.Fprintf(out, " %s\n", tmpl.Description)
		}
		return nil
	}

	var projectName string
	if len(args) > 0 {
		projectName = args[0]
	}

	// Select template
	var tmpl *scaffold.Template
	if initTemplate != "" {
		var err error
		tmpl, err = registry.Get(initTemplate)
		if err != nil {
			return fmt.Errorf("template '%s' not found. Use 'metaforge init --list' to see available templates", initTemplate)
		}
	} else if initDefaults {
		tmpl, _ = registry.Get("standard")
	} else {
		tmplList := registry.List()
		templateOptions := make([]string, len(tmplList))
		for i, t := range tmplList {
			templateOptions[i] = fmt.Sprintf("%s - %s", t.Name, t.Description)
		}

		var selectedIdx int
		prompt := &survey.Select{
			Message: "Select a template:",
			Options: templateOptions,
		}
		if err := survey.AskOne(prompt, &selectedIdx); err != nil {
			return err
		}
		tmpl = tmplList[selectedIdx]
	}

	infoColor.Fprintf(out, "Using template: %s\n\n", tmpl.Name)

	// Project name
	if projectName == "" {
		if initDefaults {
			return fmt.Errorf("project name required with --defaults")
		}
		prompt := &survey.Input{
			Message: "Project name:",
		}
		if err := survey.AskOne(prompt, &projectName, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if err := validateProjectName(projectName); err != nil {
		return err
	}

	ctx := &scaffold.Context{
		ProjectName: projectName,
		Variables:   make(map[string]interface{}),
		Timestamp:   time.Now(),
	}

	presets, err := parseVarFlags(initVars)
	if err != nil {
		return err
	}

	// Collect template variables
	for _, v := range tmpl.Variables {
		if preset, ok := presets[v.Name]; ok {
			value, err := coerceVariable(v, preset)
			if err != nil {
				return err
			}
			ctx.Variables[v.Name] = value
			continue
		}

		if initDefaults {
			if v.Default == nil && v.Required {
				return fmt.Errorf("variable %s has no default; pass it with --var %s=value", v.Name, v.Name)
			}
			if v.Default != nil {
				ctx.Variables[v.Name] = v.Default
			}
			continue
		}

		value, err := promptVariable(v)
		if err != nil {
			return err
		}
		ctx.Variables[v.Name] = value
	}

	// Check if directory exists
	projectPath := filepath.Join(".", projectName)
	if _, err := os.Stat(projectPath); err == nil {
		return fmt.Errorf("directory %s already exists", projectName)
	}

	infoColor.Fprintf(out, "Creating project: %s\n\n", projectName)

	engine := scaffold.NewEngine()
	if err := engine.Execute(tmpl, ctx, projectPath); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	successColor.Fprintf(out, "✓ Created project: %s\n\n", projectName)

	promptColor.Fprintln(out, "Get started:")
	fmt.Fprintf(out, "  cd %s\n", projectName)
	fmt.Fprintln(out, "  metaforge serve")
	fmt.Fprintln(out)

	return nil
}

// promptVariable asks for one template variable with the prompt kind
// matching its declared type.
func promptVariable(v *scaffold.Variable) (interface{}, error) {
	switch v.Type {
	case scaffold.VariableTypeString:
		var strVal string
		prompt := &survey.Input{
			Message: v.Prompt,
		}
		if v.Default != nil {
			prompt.Default = fmt.Sprintf("%v", v.Default)
		}
		validators := []survey.Validator{}
		if v.Required {
			validators = append(validators, survey.Required)
		}
		if err := survey.AskOne(prompt, &strVal, survey.WithValidator(survey.ComposeValidators(validators...))); err != nil {
			return nil, err
		}
		return strVal, nil

	case scaffold.VariableTypeInt:
		var intStr string
		defaultVal := "0"
		if v.Default != nil {
			defaultVal = fmt.Sprintf("%v", v.Default)
		}
		prompt := &survey.Input{
			Message: v.Prompt,
			Default: defaultVal,
		}
		if err := survey.AskOne(prompt, &intStr); err != nil {
			return nil, err
		}
		if intStr == "" {
			if v.Default != nil {
				return v.Default, nil
			}
			return 0, nil
		}
		intVal, err := strconv.Atoi(intStr)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", v.Name, err)
		}
		return intVal, nil

	case scaffold.VariableTypeConfirm:
		var boolVal bool
		defaultBool := false
		if v.Default != nil {
			defaultBool, _ = v.Default.(bool)
		}
		prompt := &survey.Confirm{
			Message: v.Prompt,
			Default: defaultBool,
		}
		if err := survey.AskOne(prompt, &boolVal); err != nil {
			return nil, err
		}
		return boolVal, nil

	case scaffold.VariableTypeSelect:
		var selected string
		prompt := &survey.Select{
			Message: v.Prompt,
			Options: v.Options,
		}
		if v.Default != nil {
			prompt.Default = fmt.Sprintf("%v", v.Default)
		}
		if err := survey.AskOne(prompt, &selected); err != nil {
			return nil, err
		}
		return selected, nil

	default:
		return nil, fmt.Errorf("unsupported variable type: %s", v.Type)
	}
}

// parseVarFlags splits repeated --var name=value flags.
func parseVarFlags(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q, expected name=value", pair)
		}
		vars[name] = value
	}
	return vars, nil
}

// coerceVariable converts a --var string into the variable's declared
// type.
func coerceVariable(v *scaffold.Variable, raw string) (interface{}, error) {
	switch v.Type {
	case scaffold.VariableTypeInt:
		intVal, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", v.Name, err)
		}
		return intVal, nil
	case scaffold.VariableTypeConfirm:
		boolVal, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value for %s: %w", v.Name, err)
		}
		return boolVal, nil
	case scaffold.VariableTypeSelect:
		for _, opt := range v.Options {
			if opt == raw {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("invalid value %q for %s, options are %s", raw, v.Name, strings.Join(v.Options, ", "))
	default:
		return raw, nil
	}
}
