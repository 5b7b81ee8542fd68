package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/causalhub/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Causalhub learns causal structure from data",
		Long: `Causalhub learns causal DAGs from tabular data by score-based hill climbing
or constraint-based PC-stable search, answers d-separation queries, and renders
the resulting graphs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/causalhub/config.toml)")

	root.AddCommand(c.fitCommand())
	root.AddCommand(c.testCommand())
	root.AddCommand(c.dsepCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
