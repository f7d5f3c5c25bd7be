package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ TYPE NOT FOUND: Widgt
//	   Cannot find object type 'Widgt'.
//
//	   Did you mean: Widget?
//
//	   → See all types: metaforge types
//	   → Get help: metaforge types --help
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelError:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	}

	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	// Header line with context
	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	// Problem description with indentation
	if opts.Problem != "" && opts.Context != "" {
		bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// TypeNotFoundError creates a standardized unknown-type error
func TypeNotFoundError(typeName string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "TYPE NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find object type '%s'.", typeName),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all types: metaforge types",
			"Get help: metaforge types --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// PatternNotFoundError creates a standardized unknown-pattern error
func PatternNotFoundError(patternName string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "PATTERN NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find pattern '%s'.", patternName),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all patterns: metaforge call listPatterns",
			"Get help: metaforge build --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ObjectNotFoundError creates a standardized missing-object error
func ObjectNotFoundError(typeName, name string, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "OBJECT NOT FOUND",
		Problem: fmt.Sprintf("No %s named '%s' exists.", typeName, name),
		HelpCommands: []string{
			fmt.Sprintf("Create it: metaforge create %s --param name=%s", typeName, name),
			"Get help: metaforge inspect --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ValidationFailedError creates a standardized validation error block. The
// server message already enumerates the failing fields.
func ValidationFailedError(message string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "VALIDATION FAILED",
		Problem:     message,
		Consequence: "Nothing was created or modified.",
		HelpCommands: []string{
			"See required parameters: metaforge types TYPE",
			"Get help: metaforge create --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ConnectionError creates a standardized daemon-unreachable error
func ConnectionError(addr string, err error, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "CONNECTION FAILED",
		Problem:     fmt.Sprintf("Cannot reach the daemon at %s.", addr),
		Consequence: err.Error(),
		HelpCommands: []string{
			"Start the daemon: metaforge serve",
			"Point at another address: metaforge --addr tcp://host:port ...",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "CONFIGURATION ERROR",
		Problem:     message,
		Suggestions: suggestions,
		HelpCommands: []string{
			"View config: cat metaforge.yml",
			"Regenerate it: metaforge init",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ServerError renders a failure envelope that is not covered by a more
// specific helper.
func ServerError(message string, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "REQUEST FAILED",
		Problem: message,
		NoColor: noColor,
	}
	return FormatError(opts)
}

// Warning creates a standardized warning message
func Warning(message string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelWarning,
		Problem:     message,
		Suggestions: suggestions,
		NoColor:     noColor,
	}
	return FormatError(opts)
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelInfo,
		Problem: message,
		NoColor: noColor,
	}
	return FormatError(opts)
}
