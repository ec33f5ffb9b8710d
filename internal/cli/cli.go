package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/internal/config"
	"github.com/matzehuels/esmstat/pkg/buildinfo"
	"github.com/matzehuels/esmstat/pkg/classify"
	"github.com/matzehuels/esmstat/pkg/classify/policy"
	"github.com/matzehuels/esmstat/pkg/httputil"
	"github.com/matzehuels/esmstat/pkg/integrations"
	"github.com/matzehuels/esmstat/pkg/integrations/npm"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "esmstat"

	// cacheNamespace prefixes every registry response in shared caches.
	cacheNamespace = "esmstat:"
)

// LogLevel is the level type accepted by [CLI.SetLogLevel].
type LogLevel = log.Level

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "esmstat tracks ESM vs. CJS adoption on npm",
		Long:          `esmstat crawls npm package metadata, classifies each package as esm, dual, faux or cjs, stores dated snapshots and charts how the mix changes over time.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error with its exit status
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./esmstat.toml)")

	root.AddCommand(c.crawlCommand())
	root.AddCommand(c.classifyCommand())
	root.AddCommand(c.classifyFileCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.scheduleCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	registerFlagCompletions(root)

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the configuration, applying every flag in flagKeys that
// the user set explicitly. flagKeys maps flag names to config keys.
func (c *CLI) loadConfig(cmd *cobra.Command, flagKeys map[string]string) (*config.Config, error) {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	cfg, err := config.Load(c.configPath, overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// Factories
// =============================================================================

// openCache returns the configured response cache and a function that
// releases it.
func openCache(ctx context.Context, cfg *config.Config, noCache bool) (httputil.Cache, func(), error) {
	nop := func() {}
	if noCache {
		return httputil.NullCache{}, nop, nil
	}
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := httputil.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			return nil, nop, err
		}
		return rc.Namespace(cacheNamespace), func() { _ = rc.Close() }, nil
	case config.CacheFile:
		fc, err := httputil.NewFileCache(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			return nil, nop, err
		}
		return fc, nop, nil
	default:
		return httputil.NullCache{}, nop, nil
	}
}

// openStore opens the configured snapshot store.
func openStore(ctx context.Context, cfg *config.Config) (snapshot.Store, error) {
	store, err := snapshot.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return store, nil
}

// newClassifier builds a classifier with the configured spam policy.
func newClassifier(cfg *config.Config) (*classify.Classifier, error) {
	var (
		pol *policy.Policy
		err error
	)
	if cfg.Policy.Path != "" {
		pol, err = policy.Load(cfg.Policy.Path)
	} else {
		pol, err = policy.Default()
	}
	if err != nil {
		return nil, err
	}
	return classify.New(pol), nil
}

// newRegistry creates the npm client.
func newRegistry(cache httputil.Cache, cfg *config.Config) *npm.Client {
	return npm.NewClient(cache, cfg.Registry.URL, cfg.Registry.Token)
}

// newWebClient creates a client for public downloads such as package lists.
// It never carries registry credentials.
func newWebClient() *integrations.Client {
	return integrations.NewClient(nil, map[string]string{
		"User-Agent": buildinfo.UserAgent(),
	})
}

// elapsed formats a duration for summaries.
func elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
