package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/esmstat/pkg/classify"
	"github.com/matzehuels/esmstat/pkg/httputil"
	"github.com/matzehuels/esmstat/pkg/observability"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

// Defaults applied by [Options.WithDefaults].
const (
	DefaultBatchSize       = 20
	DefaultRetryDelay      = 10 * time.Second
	DefaultMaxBatchRetries = 5
)

// outcomeFailed is reported to hooks for packages that could not be fetched.
const outcomeFailed = "failed"

// Fetcher retrieves packuments from a registry.
type Fetcher interface {
	// FetchPackument retrieves the registry document for name. If refresh
	// is true, cached data is bypassed.
	FetchPackument(ctx context.Context, name string, refresh bool) (*classify.Packument, error)
}

// Options tunes a crawl run.
type Options struct {
	BatchSize       int              // packages per batch
	Concurrency     int              // concurrent fetches within a batch; defaults to BatchSize
	RetryDelay      time.Duration    // wait before retrying a failed batch
	MaxBatchRetries int              // retries per batch before its packages are given up
	Backoff         httputil.Backoff // flat (default) or exponential batch retry delay
	Refresh         bool             // bypass the response cache
	Date            string           // snapshot date; defaults to today (UTC)
	Progress        io.Writer        // progress bar output; nil disables it

	// RunID identifies the run in the summary and hooks. When empty, Run
	// generates one and tags Logger with it; a caller that supplies RunID
	// is expected to have tagged Logger already.
	RunID string
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = opts.BatchSize
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxBatchRetries < 0 {
		opts.MaxBatchRetries = 0
	} else if opts.MaxBatchRetries == 0 {
		opts.MaxBatchRetries = DefaultMaxBatchRetries
	}
	if opts.Backoff == "" {
		opts.Backoff = httputil.BackoffFlat
	}
	if opts.Date == "" {
		opts.Date = snapshot.DateOf(time.Now())
	}
	return opts
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Date       string
	Total      int
	Classified int
	Skipped    int
	Failed     int
	Counts     map[classify.Style]int
	Reasons    map[classify.Reason]int
	Duration   time.Duration
}

// Runner crawls a package list into a snapshot.
type Runner struct {
	Fetcher    Fetcher
	Classifier *classify.Classifier
	Store      snapshot.Store
	Logger     *log.Logger
	Options    Options
}

type run struct {
	*Runner
	opts   Options
	id     string
	logger *log.Logger
	bar    *progressbar.ProgressBar

	mu      sync.Mutex
	snap    *snapshot.Snapshot
	summary *Summary
}

// Run crawls names and saves the resulting snapshot. The partial snapshot
// is saved after each batch. Run returns early only on context
// cancellation or a store failure.
func (r *Runner) Run(ctx context.Context, names []string) (*Summary, error) {
	if r.Fetcher == nil || r.Classifier == nil || r.Store == nil {
		return nil, errors.New("crawl: runner needs a fetcher, classifier and store")
	}
	opts := r.Options.WithDefaults()
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	id := opts.RunID
	if id == "" {
		id = uuid.NewString()
		logger = logger.With("run", id[:8])
	}

	c := &run{
		Runner: r,
		opts:   opts,
		id:     id,
		logger: logger,
		snap:   snapshot.New(opts.Date),
		summary: &Summary{
			RunID:   id,
			Date:    opts.Date,
			Total:   len(names),
			Counts:  make(map[classify.Style]int),
			Reasons: make(map[classify.Reason]int),
		},
	}
	if opts.Progress != nil {
		c.bar = progressbar.NewOptions(len(names),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("crawling"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer c.bar.Finish()
	}

	start := time.Now()
	logger.Info("crawl started", "packages", len(names), "date", opts.Date, "batch", opts.BatchSize)

	batches := (len(names) + opts.BatchSize - 1) / opts.BatchSize
	for b := range batches {
		lo := b * opts.BatchSize
		hi := min(lo+opts.BatchSize, len(names))

		if err := c.batch(ctx, b, names[lo:hi]); err != nil {
			return c.summary, err
		}
		if err := c.save(ctx); err != nil {
			return c.summary, err
		}
		logger.Debug("batch saved", "batch", b, "collected", hi, "of", len(names))
	}
	if batches == 0 {
		if err := c.save(ctx); err != nil {
			return c.summary, err
		}
	}

	c.summary.Duration = time.Since(start)
	logger.Info("crawl finished",
		"classified", c.summary.Classified,
		"skipped", c.summary.Skipped,
		"failed", c.summary.Failed,
		"took", c.summary.Duration.Round(time.Millisecond))
	return c.summary, nil
}

// batch processes one batch, retrying the packages that hit transient
// failures. Packages still unresolved after the last retry are recorded as
// missing.
func (c *run) batch(ctx context.Context, index int, names []string) error {
	hooks := observability.Crawl()
	hooks.OnBatchStart(ctx, c.id, index, len(names))
	start := time.Now()

	pending := names
	attempts := 0
	policy := httputil.RetryPolicy{
		Attempts: c.opts.MaxBatchRetries + 1,
		Delay:    c.opts.RetryDelay,
		Backoff:  c.opts.Backoff,
		OnRetry: func(attempt int, err error) {
			c.logger.Warn("batch failed, retrying", "batch", index, "attempt", attempt, "pending", len(pending), "err", err)
		},
	}
	err := policy.Do(ctx, func() error {
		attempts++
		retry, err := c.fetchAll(ctx, pending)
		if err != nil {
			return err
		}
		pending = retry
		if len(pending) > 0 {
			return httputil.Retryable(fmt.Errorf("%d of %d packages hit network errors", len(pending), len(names)))
		}
		return nil
	})
	hooks.OnBatchComplete(ctx, c.id, index, attempts, time.Since(start), err)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !httputil.IsRetryable(err) {
		return err
	}
	if len(pending) > 0 {
		c.logger.Warn("batch gave up", "batch", index, "missing", len(pending), "attempts", attempts)
		for _, name := range pending {
			c.fail(ctx, name, err)
		}
	}
	return nil
}

// fetchAll fetches and classifies names concurrently. It returns the names
// whose fetch failed with a transient error.
func (c *run) fetchAll(ctx context.Context, names []string) ([]string, error) {
	var (
		mu    sync.Mutex
		retry []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for _, name := range names {
		g.Go(func() error {
			p, err := c.Fetcher.FetchPackument(gctx, name, c.opts.Refresh)
			switch {
			case err == nil:
				c.record(gctx, name, c.Classifier.Classify(p))
			case ctx.Err() != nil:
				return ctx.Err()
			case transient(err):
				c.logger.Debug("fetch failed, will retry", "pkg", name, "err", err)
				mu.Lock()
				retry = append(retry, name)
				mu.Unlock()
			default:
				c.fail(gctx, name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return retry, nil
}

// transient reports whether err should fail the batch rather than the package.
func transient(err error) bool {
	return httputil.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
}

func (c *run) record(ctx context.Context, name string, res classify.Result) {
	outcome := string(res.Style)
	if res.Skipped {
		outcome = string(res.Reason)
		c.logger.Debug("skipped", "pkg", name, "reason", res.Reason, "detail", res.Detail)
	}
	for _, a := range res.Anomalies {
		c.logger.Debug("unrecognised exports entry", "pkg", name, "path", a.Path, "value", a.Raw)
	}

	c.mu.Lock()
	if res.Skipped {
		c.summary.Skipped++
		c.summary.Reasons[res.Reason]++
	} else {
		c.summary.Classified++
		c.summary.Counts[res.Style]++
		c.snap.Styles[name] = res.Style
	}
	c.mu.Unlock()

	c.progress()
	observability.Crawl().OnPackage(ctx, c.id, name, outcome)
}

func (c *run) fail(ctx context.Context, name string, err error) {
	c.logger.Warn("package failed", "pkg", name, "err", err)
	c.mu.Lock()
	c.summary.Failed++
	c.mu.Unlock()

	c.progress()
	observability.Crawl().OnPackage(ctx, c.id, name, outcomeFailed)
}

func (c *run) progress() {
	if c.bar != nil {
		_ = c.bar.Add(1)
	}
}

func (c *run) save(ctx context.Context) error {
	c.mu.Lock()
	snap := c.snap.Clone()
	c.mu.Unlock()
	if err := c.Store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Date, err)
	}
	return nil
}
