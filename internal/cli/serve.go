package cli

import (
	"cmp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/causalhub/pkg/api"
	"github.com/matzehuels/causalhub/pkg/observability/prom"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		cfg     ServeConfig
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. Endpoints:

  POST /v1/fit         learn a graph from inline CSV
  POST /v1/separation  d-separation and Markov blanket queries
  POST /v1/render      draw a graph
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			file, err := c.Config()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("addr") {
				cfg.Addr = cmp.Or(file.Serve.Addr, defaultAddr)
			}
			if !flags.Changed("fit-timeout") {
				cfg.FitTimeout = file.Serve.FitTimeout
			}
			if !flags.Changed("max-body") {
				cfg.MaxBody = file.Serve.MaxBody
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			prom.Register(reg)

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := api.New(api.Config{
				Runner:     runner,
				Logger:     c.Logger,
				Gatherer:   reg,
				MaxBody:    cfg.MaxBody,
				FitTimeout: cfg.FitTimeout,
			})
			printInfo("Listening on %s", cfg.Addr)
			return srv.ListenAndServe(ctx, cfg.Addr)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", defaultAddr, "listen address")
	cmd.Flags().DurationVar(&cfg.FitTimeout, "fit-timeout", 0, "bound on each fit request (0 = none)")
	cmd.Flags().Int64Var(&cfg.MaxBody, "max-body", 0, "request body limit in bytes (0 = 32 MiB)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}
