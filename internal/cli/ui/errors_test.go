package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatError(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "basic error",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "TYPE NOT FOUND",
				Problem: "Cannot find object type 'Widget'.",
			},
			contains: []string{
				"❌",
				"TYPE NOT FOUND",
				"Cannot find object type 'Widget'.",
			},
		},
		{
			name: "error with suggestions",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Context:     "TYPE NOT FOUND",
				Problem:     "Cannot find object type 'Frm'.",
				Suggestions: []string{"Form", "Field"},
			},
			contains: []string{
				"Did you mean: Form, Field?",
			},
		},
		{
			name: "error with help commands",
			opts: ErrorOptions{
				Level:        ErrorLevelError,
				Context:      "CONNECTION FAILED",
				Problem:      "Cannot reach the daemon.",
				HelpCommands: []string{"Start the daemon: metaforge serve"},
			},
			contains: []string{
				"→ Start the daemon: metaforge serve",
			},
		},
		{
			name: "error with consequence",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Context:     "VALIDATION FAILED",
				Problem:     "2 parameters are invalid.",
				Consequence: "Nothing was created or modified.",
			},
			contains: []string{
				"Nothing was created or modified.",
			},
		},
		{
			name: "warning level",
			opts: ErrorOptions{
				Level:   ErrorLevelWarning,
				Problem: "Pattern version 2.0 not found, using 1.0.",
			},
			contains: []string{
				"⚠️",
				"Pattern version 2.0 not found, using 1.0.",
			},
		},
		{
			name: "info level",
			opts: ErrorOptions{
				Level:   ErrorLevelInfo,
				Problem: "No patterns loaded.",
			},
			contains: []string{
				"ℹ️",
				"No patterns loaded.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.NoColor = true
			output := FormatError(tt.opts)
			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("FormatError output missing %q\ngot:\n%s", want, output)
				}
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{
		Level:   ErrorLevelError,
		Context: "REQUEST FAILED",
		Problem: "internal: boom",
		NoColor: true,
	})

	if !strings.Contains(buf.String(), "REQUEST FAILED") {
		t.Errorf("WriteError output missing context, got: %s", buf.String())
	}
}

func TestFormatSuccess(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	output := FormatSuccess("Created Form 'registration'", true)
	if !strings.Contains(output, "✓") {
		t.Errorf("Success output missing checkmark: %s", output)
	}
	if !strings.Contains(output, "Created Form 'registration'") {
		t.Errorf("Success output missing message: %s", output)
	}
}

func TestTypeNotFoundError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	output := TypeNotFoundError("Widgt", []string{"Widget"}, true)

	for _, want := range []string{
		"TYPE NOT FOUND",
		"Cannot find object type 'Widgt'.",
		"Did you mean: Widget?",
		"See all types: metaforge types",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("TypeNotFoundError missing %q\ngot:\n%s", want, output)
		}
	}
}

func TestPatternNotFoundError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	output := PatternNotFoundError("contact_frm", []string{"contact_form"}, true)

	for _, want := range []string{
		"PATTERN NOT FOUND",
		"Cannot find pattern 'contact_frm'.",
		"Did you mean: contact_form?",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("PatternNotFoundError missing %q\ngot:\n%s", want, output)
		}
	}
}

func TestValidationFailedError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	output := ValidationFailedError("validation failed for 2 parameters", true)

	for _, want := range []string{
		"VALIDATION FAILED",
		"validation failed for 2 parameters",
		"Nothing was created or modified.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("ValidationFailedError missing %q\ngot:\n%s", want, output)
		}
	}
}

func TestConnectionError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	output := ConnectionError("tcp://127.0.0.1:7171", errors.New("connection refused"), true)

	for _, want := range []string{
		"CONNECTION FAILED",
		"tcp://127.0.0.1:7171",
		"Start the daemon: metaforge serve",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("ConnectionError missing %q\ngot:\n%s", want, output)
		}
	}
}
