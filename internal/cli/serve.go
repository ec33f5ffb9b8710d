package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart, table, snapshots and live classification over HTTP",
		Long: `Serve the report over HTTP:

  GET /healthz            liveness
  GET /chart.svg          stacked-bar chart of all snapshots
  GET /report.csv         CSV table of all snapshots
  GET /snapshots          snapshot dates
  GET /snapshots/{date}   one snapshot with its counts
  GET /classify/{name}    classify a package from the registry`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(cmd, map[string]string{
				"addr":  "serve.addr",
				"store": "store.backend",
			})
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			classifier, err := newClassifier(cfg)
			if err != nil {
				return err
			}
			cache, closeCache, err := openCache(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			srv := server.New(cfg.Serve.Addr, store, newRegistry(cache, cfg), classifier, loggerFromContext(ctx))
			printInfo("Serving on %s", StyleHighlight.Render(cfg.Serve.Addr))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default: :8080)")
	cmd.Flags().String("store", "", "snapshot store: file, sqlite or mongo")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache entirely")

	return cmd
}
