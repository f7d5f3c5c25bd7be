package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for the metaforge CLI.

To load completions:

Bash:

  $ source <(metaforge completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ metaforge completion bash > /etc/bash_completion.d/metaforge
  # macOS:
  $ metaforge completion bash > $(brew --prefix)/etc/bash_completion.d/metaforge

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ metaforge completion zsh > "${fpath[1]}/_metaforge"

  # You will need to start a new shell for this setup to take effect.

Fish:

  $ metaforge completion fish | source

  # To load completions for each session, execute once:
  $ metaforge completion fish > ~/.config/fish/completions/metaforge.fish

PowerShell:

  PS> metaforge completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
