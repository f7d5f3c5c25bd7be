package commands

import (
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

var (
	callType   string
	callParams []string
	callID     string
)

// NewCallCommand creates the call command
func NewCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call ACTION",
		Short: "Send a raw action request to the daemon",
		Long: `Send one request envelope and print the response envelope as JSON.

This is the escape hatch for scripting and for actions without a
dedicated command. Failure envelopes are printed too; the exit code
stays zero because the round trip itself succeeded.

Examples:
  metaforge call ping
  metaforge call listTypes
  metaforge call inspectObject --type Form --param name=contact
  metaforge call createObject --type Report --param name=weekly --param status=Draft`,
		Args: cobra.ExactArgs(1),
		RunE: runCall,
	}

	cmd.Flags().StringVarP(&callType, "type", "t", "", "Object type for the request")
	cmd.Flags().StringArrayVarP(&callParams, "param", "p", nil, "Request parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&callID, "id", "", "Correlation ID (default: a fresh UUID)")

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	action := args[0]

	params, err := parseParams(callParams)
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

	resp, err := c.Do(cmd.Context(), &protocol.Request{
		ID:         callID,
		Action:     action,
		ObjectType: callType,
		Parameters: params,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), resp)
}
