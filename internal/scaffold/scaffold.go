// Package scaffold renders project templates for metaforge init: a config
// file, a starter schema seed, and a pattern library laid out so the daemon
// can start against them immediately.
package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// VariableType tells the init prompt how to ask for a variable.
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeInt     VariableType = "int"
	VariableTypeSelect  VariableType = "select"
	VariableTypeConfirm VariableType = "confirm"
)

// Template describes one project layout
type Template struct {
	Name        string
	Description string
	Version     string
	Variables   []*Variable
	Files       []*File
	Directories []string
}

// Variable is a configurable input collected before rendering
type Variable struct {
	Name        string
	Description string
	Type        VariableType
	Default     any
	Required    bool
	Options     []string
	Prompt      string
}

// File is one rendered output file
type File struct {
	TargetPath string
	Content    string
	Template   bool   // run the content through the template engine
	Executable bool
	Condition  string // skip the file unless this renders to "true"
}

// Context carries the data available to template expressions
type Context struct {
	ProjectName string
	Variables   map[string]any
	Timestamp   time.Time
}

// Engine renders templates into a target directory
type Engine struct {
	funcs template.FuncMap
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{
		funcs: template.FuncMap{
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"title": func(s string) string {
				words := strings.Fields(s)
				for i, word := range words {
					words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
				}
				return strings.Join(words, " ")
			},
			"now":  time.Now,
			"year": func() int { return time.Now().Year() },
			"default": func(def, val any) any {
				if val == nil || val == "" {
					return def
				}
				return val
			},
		},
	}
}

// Execute renders tmpl into targetDir, creating it if needed.
func (e *Engine) Execute(tmpl *Template, ctx *Context, targetDir string) error {
	if err := e.validateContext(tmpl, ctx); err != nil {
		return fmt.Errorf("invalid template context: %w", err)
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	for _, dir := range tmpl.Directories {
		rendered, err := e.renderString(dir, ctx)
		if err != nil {
			return fmt.Errorf("failed to render directory path %s: %w", dir, err)
		}

		fullPath, err := resolveWithin(targetDir, rendered)
		if err != nil {
			return fmt.Errorf("invalid directory path %s: %w", dir, err)
		}

		if err := os.MkdirAll(fullPath, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
		}
	}

	for _, file := range tmpl.Files {
		if file.Condition != "" {
			keep, err := e.renderString(file.Condition, ctx)
			if err != nil {
				return fmt.Errorf("failed to evaluate condition for %s: %w", file.TargetPath, err)
			}
			if keep != "true" {
				continue
			}
		}

		rendered, err := e.renderString(file.TargetPath, ctx)
		if err != nil {
			return fmt.Errorf("failed to render target path %s: %w", file.TargetPath, err)
		}

		fullPath, err := resolveWithin(targetDir, rendered)
		if err != nil {
			return fmt.Errorf("invalid target path %s: %w", file.TargetPath, err)
		}

		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create parent directory for %s: %w", fullPath, err)
		}

		content := file.Content
		if file.Template {
			content, err = e.renderString(file.Content, ctx)
			if err != nil {
				return fmt.Errorf("failed to render template %s: %w", file.TargetPath, err)
			}
		}

		mode := os.FileMode(0644)
		if file.Executable {
			mode = 0755
		}
		if err := os.WriteFile(fullPath, []byte(content), mode); err != nil {
			return fmt.Errorf("failed to write file %s: %w", fullPath, err)
		}
	}

	return nil
}

// resolveWithin joins rel onto base and rejects paths that would land
// outside it, absolute paths and ".." traversal included.
func resolveWithin(base, rel string) (string, error) {
	rel = filepath.Clean(rel)
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %s escapes the project directory", rel)
	}

	full := filepath.Clean(filepath.Join(base, rel))
	prefix := filepath.Clean(base) + string(filepath.Separator)
	if !strings.HasPrefix(full+string(filepath.Separator), prefix) {
		return "", fmt.Errorf("path %s escapes the project directory", rel)
	}

	return full, nil
}

func (e *Engine) renderString(tmplStr string, ctx *Context) (string, error) {
	tmpl, err := template.New("").Funcs(e.funcs).Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *Engine) validateContext(tmpl *Template, ctx *Context) error {
	for _, v := range tmpl.Variables {
		if v.Required {
			if _, ok := ctx.Variables[v.Name]; !ok {
				return fmt.Errorf("required variable %s not provided", v.Name)
			}
		}
	}
	return nil
}

// Validate checks a template structure before registration.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if t.Version == "" {
		return fmt.Errorf("template version is required")
	}
	if len(t.Files) == 0 {
		return fmt.Errorf("template must have at least one file")
	}

	varNames := make(map[string]bool)
	for _, v := range t.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable name is required")
		}
		if varNames[v.Name] {
			return fmt.Errorf("duplicate variable name: %s", v.Name)
		}
		varNames[v.Name] = true

		if v.Type == VariableTypeSelect && len(v.Options) == 0 {
			return fmt.Errorf("select variable %s must have options", v.Name)
		}
	}

	for _, f := range t.Files {
		if f.TargetPath == "" {
			return fmt.Errorf("file target path is required")
		}
		if f.Content == "" {
			return fmt.Errorf("file content is required for %s", f.TargetPath)
		}
	}

	return nil
}
