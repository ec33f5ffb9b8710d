package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Structured log keys shared by all commands.
const (
	keyRun = "run" // short id of a crawl or scheduled run
	keyPkg = "pkg" // npm package name
)

// newLogger returns the CLI logger: timestamps as "15:04:05.00", filtered
// at level. Command output goes to stdout; the logger writes to w.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long a step took, for example
// "Scheduled run 1f0c2a9e: 812 classified, 31 snapshots rendered (4m2.113s)".
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	runKey
)

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger set by the root command, or
// log.Default() outside a command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// withRun starts a run. The returned context holds a fresh run id, and its
// logger tags every line with the short form of that id.
func withRun(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	ctx = context.WithValue(ctx, runKey, id)
	return withLogger(ctx, loggerFromContext(ctx).With(keyRun, shortID(id))), id
}

// runFromContext returns the id set by withRun, or "".
func runFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runKey).(string)
	return id
}

// pkgLogger returns the context logger tagged with a package name.
func pkgLogger(ctx context.Context, name string) *log.Logger {
	return loggerFromContext(ctx).With(keyPkg, name)
}

// shortID is the form of a run id used in logs and summaries.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
