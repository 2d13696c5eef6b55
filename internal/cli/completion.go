package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for resolvekit.

Load it in the current shell:

  $ source <(resolvekit completion bash)
  $ resolvekit completion fish | source
  PS> resolvekit completion powershell | Out-String | Invoke-Expression

To load completions in every session, write the script to your shell's
completion directory, for example:

  $ resolvekit completion bash > /etc/bash_completion.d/resolvekit
  $ resolvekit completion zsh > "${fpath[1]}/_resolvekit"
  $ resolvekit completion fish > ~/.config/fish/completions/resolvekit.fish

Values of --mode, --format and --condition are completed as well.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// commonConditions are offered when completing --condition.
var commonConditions = []string{
	"node", "import", "require", "default", "browser", "deno", "worker",
	"development", "production", "types", "module-sync",
}

// registerResolveCompletions adds value completion for the flags shared by
// resolve and trace.
func registerResolveCompletions(cmd *cobra.Command) {
	fixed := func(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}
	_ = cmd.RegisterFlagCompletionFunc("mode", fixed("auto", "cjs", "esm"))
	_ = cmd.RegisterFlagCompletionFunc("condition", fixed(commonConditions...))
	if cmd.Flags().Lookup("format") != nil {
		_ = cmd.RegisterFlagCompletionFunc("format", fixed("text", "dot", "svg"))
	}
}
