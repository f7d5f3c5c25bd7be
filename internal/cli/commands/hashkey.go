package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/metaforge-dev/metaforge/internal/auth"
)

// NewHashKeyCommand creates the hash-key command
func NewHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Hash an access key for the auth config",
		Long: `Hash a plain access key with bcrypt for use as auth.access_key_hash.

Without an argument the key is read from a hidden prompt, which keeps
it out of shell history.

Example:
  metaforge hash-key
  metaforge hash-key s3cret   # fine for throwaway keys only`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHashKey,
	}
}

func runHashKey(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		prompt := &survey.Password{
			Message: "Access key:",
		}
		if err := survey.AskOne(prompt, &key, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	hash, err := auth.HashAccessKey(key)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
