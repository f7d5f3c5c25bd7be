package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/cli/config"
	"github.com/metaforge-dev/metaforge/internal/cli/ui"
	"github.com/metaforge-dev/metaforge/pkg/client"
)

// loadConfig reads the effective configuration, honoring --config. A
// missing default file is fine; every key has a default.
func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}

// connect dials the daemon, preferring --addr over the configured
// address. On failure it prints the full connection help block and
// returns a short error for the exit path.
func connect(cmd *cobra.Command, cfg *config.Config) (*client.Client, error) {
	addr := flagAddr
	if addr == "" {
		addr = cfg.DialAddr()
	}

	c, err := client.Dial(addr, client.WithTimeout(cfg.Client.Timeout))
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConnectionError(addr, err, color.NoColor))
		return nil, fmt.Errorf("cannot reach daemon at %s", addr)
	}
	return c, nil
}

// parseParams converts repeated key=value flags into a parameter map.
// Values that parse as JSON keep their JSON type, so counts arrive as
// numbers and flags as booleans; everything else stays a string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

// Taxonomy prefixes used on failure envelopes. The daemon promises these
// stay stable, so the CLI can pick the right help block by prefix.
const (
	prefixNotFound    = "not found: "
	prefixValidation  = "validation: "
	prefixUnavailable = "provider unavailable: "
	prefixTimeout     = "timeout: "
)

func apiMessage(err error) (string, bool) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message, true
	}
	return "", false
}

func isNotFound(err error) bool {
	msg, ok := apiMessage(err)
	return ok && strings.HasPrefix(msg, prefixNotFound)
}

func isValidation(err error) bool {
	msg, ok := apiMessage(err)
	return ok && strings.HasPrefix(msg, prefixValidation)
}

// renderCallError prints the standard help block for a failed call and
// returns a short error carrying the server message.
func renderCallError(cmd *cobra.Command, err error) error {
	msg, ok := apiMessage(err)
	if !ok {
		return err
	}

	w := cmd.ErrOrStderr()
	switch {
	case strings.HasPrefix(msg, prefixValidation):
		fmt.Fprint(w, ui.ValidationFailedError(strings.TrimPrefix(msg, prefixValidation), color.NoColor))
	case strings.HasPrefix(msg, prefixUnavailable):
		fmt.Fprint(w, ui.FormatError(ui.ErrorOptions{
			Level:       ui.ErrorLevelError,
			Context:     "PROVIDER UNAVAILABLE",
			Problem:     strings.TrimPrefix(msg, prefixUnavailable),
			Consequence: "The daemon is up but its metadata backend is not responding.",
			NoColor:     color.NoColor,
		}))
	default:
		fmt.Fprint(w, ui.ServerError(msg, color.NoColor))
	}
	return errors.New(msg)
}

// renderPatternCallError separates the not-found cases a pattern call
// can hit: the pattern itself, the target container, or its type. The
// taxonomy prefix alone cannot tell them apart, so the sentinel text is
// matched too.
func renderPatternCallError(cmd *cobra.Command, c *client.Client, err error, patternName, typeName, name string) error {
	if !isNotFound(err) {
		return renderCallError(cmd, err)
	}

	msg, _ := apiMessage(err)
	w := cmd.ErrOrStderr()
	ctx := cmd.Context()
	switch {
	case strings.Contains(msg, "pattern not found"):
		fmt.Fprint(w, ui.PatternNotFoundError(patternName, suggestPatterns(ctx, c, patternName), color.NoColor))
		return fmt.Errorf("unknown pattern %s", patternName)
	case strings.Contains(msg, "type not found"):
		fmt.Fprint(w, ui.TypeNotFoundError(typeName, suggestTypes(ctx, c, typeName), color.NoColor))
		return fmt.Errorf("unknown type %s", typeName)
	case strings.Contains(msg, "object not found"):
		fmt.Fprint(w, ui.ObjectNotFoundError(typeName, name, color.NoColor))
		return fmt.Errorf("no %s named %s", typeName, name)
	default:
		fmt.Fprint(w, ui.ServerError(msg, color.NoColor))
		return errors.New(msg)
	}
}

// suggestTypes returns close matches for a misspelled type name. Best
// effort: a failed listing just means no suggestions.
func suggestTypes(ctx context.Context, c *client.Client, typeName string) []string {
	names, err := c.ListTypes(ctx)
	if err != nil {
		return nil
	}
	return ui.FindSimilar(typeName, names)
}

// suggestPatterns returns close matches for a misspelled pattern name.
func suggestPatterns(ctx context.Context, c *client.Client, patternName string) []string {
	infos, err := c.ListPatterns(ctx)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(infos))
	seen := make(map[string]bool)
	for _, info := range infos {
		if !seen[info.Name] {
			seen[info.Name] = true
			names = append(names, info.Name)
		}
	}
	return ui.FindSimilar(patternName, names)
}

// printJSON writes v as indented JSON for scripting consumers.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
