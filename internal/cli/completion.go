package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/internal/config"
	"github.com/matzehuels/esmstat/pkg/httputil"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

// flagValues lists the fixed choices of enum-like flags, shared by every
// command that declares them.
var flagValues = map[string][]string{
	"store":   {snapshot.BackendFile, snapshot.BackendSQLite, snapshot.BackendMongo},
	"backoff": {string(httputil.BackoffFlat), string(httputil.BackoffExponential)},
	"date":    {"latest"},
	"cron":    {config.Default().Schedule.Cron},
}

// registerFlagCompletions attaches value completion to each known flag of
// every subcommand of root.
func registerFlagCompletions(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		for name, values := range flagValues {
			if cmd.Flags().Lookup(name) == nil {
				continue
			}
			_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
		}
	}
}

// completionCommand creates the completion command.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for esmstat. Besides commands and flags,
it completes --store, --backoff and --date values.

  $ source <(esmstat completion bash)
  $ esmstat completion zsh > "${fpath[1]}/_esmstat"
  $ esmstat completion fish > ~/.config/fish/completions/esmstat.fish
  PS> esmstat completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
