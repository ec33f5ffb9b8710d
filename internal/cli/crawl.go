package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/internal/config"
	"github.com/matzehuels/esmstat/pkg/crawl"
	errs "github.com/matzehuels/esmstat/pkg/errors"
)

// crawlFlags holds the per-invocation crawl settings that are not config keys.
type crawlFlags struct {
	refresh    bool
	noCache    bool
	noProgress bool
	date       string
}

// crawlCommand creates the crawl command.
func (c *CLI) crawlCommand() *cobra.Command {
	var flags crawlFlags

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch and classify the package list into a dated snapshot",
		Long: `Fetch every package in the package list from the npm registry, classify
its latest version and save the result as today's snapshot.

The package list is a file or http(s) URL holding either a JSON array of
names or one name per line. A registry token is required (NPM_TOKEN).`,
		Example: `  # Crawl the configured list
  esmstat crawl

  # Crawl a local list into a named snapshot, ignoring cached responses
  esmstat crawl --packages top.txt --date latest --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, map[string]string{
				"packages":    "packages.source",
				"batch-size":  "crawl.batch_size",
				"concurrency": "crawl.concurrency",
				"retry-delay": "crawl.retry_delay",
				"backoff":     "crawl.backoff",
				"store":       "store.backend",
			})
			if err != nil {
				return err
			}
			if flags.date != "" {
				if err := errs.ValidateSnapshotDate(flags.date); err != nil {
					return err
				}
			}

			sum, err := c.runCrawl(cmd.Context(), cfg, flags)
			if sum != nil {
				printCrawlSummary(sum)
			}
			if err != nil {
				return err
			}
			printNextStep("Render the chart", appName+" report")
			return nil
		},
	}

	cmd.Flags().String("packages", "", "package list file or URL")
	cmd.Flags().Int("batch-size", crawl.DefaultBatchSize, "packages per batch")
	cmd.Flags().Int("concurrency", 0, "concurrent fetches per batch (default: batch size)")
	cmd.Flags().Duration("retry-delay", crawl.DefaultRetryDelay, "wait before retrying a failed batch")
	cmd.Flags().String("backoff", "flat", "batch retry backoff: flat or exponential")
	cmd.Flags().String("store", "", "snapshot store: file, sqlite or mongo")
	cmd.Flags().StringVar(&flags.date, "date", "", "snapshot date, YYYY-MM-DD or latest (default: today)")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "bypass cached registry responses")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the response cache entirely")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "hide the progress bar")

	return cmd
}

// runCrawl crawls the configured package list into the configured store.
// The token is checked before anything is fetched.
func (c *CLI) runCrawl(ctx context.Context, cfg *config.Config, flags crawlFlags) (*crawl.Summary, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}
	id := runFromContext(ctx)
	if id == "" {
		ctx, id = withRun(ctx)
	}
	logger := loggerFromContext(ctx)

	classifier, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}
	showProgress := !flags.noProgress && logger.GetLevel() > LogDebug

	spinner := newSpinner(ctx, stderr, "Loading package list from %s", cfg.Packages.Source)
	if showProgress {
		spinner.Start()
	}
	names, err := crawl.LoadNames(ctx, cfg.Packages.Source, newWebClient())
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	logger.Debug("package list loaded", "source", cfg.Packages.Source, "count", len(names))

	cache, closeCache, err := openCache(ctx, cfg, flags.noCache)
	if err != nil {
		return nil, err
	}
	defer closeCache()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	opts := cfg.CrawlOptions()
	opts.Refresh = flags.refresh
	opts.Date = flags.date
	opts.RunID = id
	if showProgress {
		opts.Progress = stderr
	}

	runner := &crawl.Runner{
		Fetcher:    newRegistry(cache, cfg),
		Classifier: classifier,
		Store:      store,
		Logger:     logger,
		Options:    opts,
	}
	return runner.Run(ctx, names)
}
