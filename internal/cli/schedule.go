package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/internal/config"
)

// scheduleCommand creates the schedule command.
func (c *CLI) scheduleCommand() *cobra.Command {
	var now bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Crawl and render the report on a cron schedule",
		Long: `Run crawl followed by report on a cron schedule until interrupted.

The schedule uses standard five-field cron syntax and defaults to daily at
midnight. A run that is still going when the next one is due is skipped.`,
		Example: `  esmstat schedule
  esmstat schedule --cron "30 2 * * *" --now`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig(cmd, map[string]string{
				"cron":     "schedule.cron",
				"packages": "packages.source",
				"store":    "store.backend",
			})
			if err != nil {
				return err
			}
			if err := cfg.RequireToken(); err != nil {
				return err
			}

			job := scheduledJob(logger, func() { c.scheduledRun(ctx, cfg) })

			sched := cron.New(cron.WithLogger(cronLogger{logger}))
			if _, err := sched.AddJob(cfg.Schedule.Cron, job); err != nil {
				return err
			}
			sched.Start()

			if entries := sched.Entries(); len(entries) > 0 {
				printInfo("Scheduled %s", StyleHighlight.Render(cfg.Schedule.Cron))
				printDetail("Next run: %s", entries[0].Next.Format(time.RFC3339))
			}
			if now {
				go job.Run()
			}

			<-ctx.Done()
			logger.Info("stopping scheduler")
			<-sched.Stop().Done()
			return ctx.Err()
		},
	}

	cmd.Flags().String("cron", "", `cron expression (default: "0 0 * * *")`)
	cmd.Flags().String("packages", "", "package list file or URL")
	cmd.Flags().String("store", "", "snapshot store: file, sqlite or mongo")
	cmd.Flags().BoolVar(&now, "now", false, "also run once immediately")

	return cmd
}

// scheduledJob wraps run so that a run still going when the next one is
// due is skipped. The --now run and cron ticks share the same job.
func scheduledJob(logger *log.Logger, run func()) cron.Job {
	return cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger})).Then(cron.FuncJob(run))
}

// scheduledRun performs one crawl and report under a single run id.
// Failures are logged; the scheduler keeps going.
func (c *CLI) scheduledRun(ctx context.Context, cfg *config.Config) {
	ctx, id := withRun(ctx)
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	sum, err := c.runCrawl(ctx, cfg, crawlFlags{noProgress: true})
	if err != nil {
		logger.Error("scheduled crawl failed", "err", err)
		return
	}
	rows, err := runReport(ctx, cfg, logger.Debugf)
	if err != nil {
		logger.Error("scheduled report failed", "err", err)
		return
	}
	prog.done(fmt.Sprintf("Scheduled run %s: %d classified, %d snapshots rendered", shortID(id), sum.Classified, len(rows)))
}

// cronLogger adapts a charm logger to cron.Logger.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
