package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/config"
	"github.com/gomanifold/manifold/pkg/endpoint"
	"github.com/gomanifold/manifold/pkg/registry"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for the manifold CLI.

To load completions:

Bash:

  $ source <(manifold completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ manifold completion bash > /etc/bash_completion.d/manifold
  # macOS:
  $ manifold completion bash > $(brew --prefix)/etc/bash_completion.d/manifold

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ manifold completion zsh > "${fpath[1]}/_manifold"

  # You will need to start a new shell for this setup to take effect.

Fish:

  $ manifold completion fish | source

  # To load completions for each session, execute once:
  $ manifold completion fish > ~/.config/fish/completions/manifold.fish

PowerShell:

  PS> manifold completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> manifold completion powershell > manifold.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := args[0]
			root := cmd.Root()
			out := cmd.OutOrStdout()

			switch shell {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeEndpoints completes the first argument from the registry named by
// the config. Registry keys and their version-less spellings are offered.
func completeEndpoints(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := loadConfig()
	if err != nil {
		cfg = &config.Config{Registry: "endpoints.json"}
	}
	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var out []string
	for _, ep := range reg.Endpoints() {
		_, short, _ := endpoint.SplitVersion(ep)
		for _, candidate := range []string{ep, short} {
			if strings.HasPrefix(candidate, toComplete) {
				out = append(out, candidate)
				break
			}
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
