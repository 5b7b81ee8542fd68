package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/causalhub/pkg/citest"
	"github.com/matzehuels/causalhub/pkg/discovery"
	"github.com/matzehuels/causalhub/pkg/pipeline"
	"github.com/matzehuels/causalhub/pkg/render"
	"github.com/matzehuels/causalhub/pkg/score"
)

// completionCommand prints shell completion scripts. Flag values with a
// fixed vocabulary (algorithms, scores, tests, formats) complete too.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for causalhub.

  $ source <(causalhub completion bash)
  $ causalhub completion zsh > "${fpath[1]}/_causalhub"
  $ causalhub completion fish > ~/.config/fish/completions/causalhub.fish
  PS> causalhub completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// flagValues lists the completions of flags with a fixed vocabulary.
var flagValues = map[string][]string{
	"algorithm": {pipeline.AlgorithmHillClimbing, pipeline.AlgorithmPCStable},
	"score":     criterionNames(),
	"family":    {string(score.Categorical), string(score.Gaussian)},
	"init":      {string(discovery.InitEmpty), string(discovery.InitRandom), string(discovery.InitGiven)},
	"test":      citest.Names(),
	"format":    render.Formats,
	"rankdir":   {"TB", "LR", "BT", "RL"},
}

func criterionNames() []string {
	var out []string
	for _, c := range score.Criteria() {
		out = append(out, string(c))
	}
	return out
}

// completeFlags registers value completions for those flags of cmd that
// appear in flagValues.
func completeFlags(cmd *cobra.Command) {
	for name, values := range flagValues {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
}
