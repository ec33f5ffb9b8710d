// Package cli implements the esmstat command-line interface.
//
// # Commands
//
//   - crawl: fetch and classify the package list into a dated snapshot
//   - classify, classify-file: classify single packages or saved packuments
//   - report: render index.svg and index.csv from every snapshot
//   - serve: expose reports, snapshots and classification over HTTP
//   - schedule: run crawl and report on a cron schedule
//   - cache: inspect or clear the registry response cache
//
// Configuration is loaded by [config.Load] from esmstat.toml, ESMSTAT_*
// environment variables and command flags.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is attached to the command context and handed to the crawl runner and
// HTTP server.
package cli
