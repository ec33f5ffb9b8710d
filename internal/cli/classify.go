package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/pkg/classify"
	"github.com/matzehuels/esmstat/pkg/integrations/npm"
)

// classifyCommand creates the classify command.
func (c *CLI) classifyCommand() *cobra.Command {
	var (
		refresh bool
		noCache bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "classify <package>...",
		Short: "Classify packages straight from the registry",
		Example: `  esmstat classify react @babel/core
  esmstat classify --json chalk`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			classifier, err := newClassifier(cfg)
			if err != nil {
				return err
			}
			cache, closeCache, err := openCache(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer closeCache()
			registry := newRegistry(cache, cfg)

			var results []classify.Outcome
			failed := 0
			spinner := newSpinner(ctx, stderr, "Fetching %s", args[0])
			if !asJSON {
				spinner.Start()
			}
			for i, name := range args {
				spinner.Step(i+1, len(args), "Fetching %s", name)
				p, err := registry.FetchPackument(ctx, name, refresh)
				if err != nil {
					if spinner.Cancelled() {
						spinner.Stop()
						return ctx.Err()
					}
					failed++
					results = append(results, classify.Outcome{Name: name, Error: err.Error()})
					pkgLogger(ctx, name).Debug("fetch failed", "err", err)
					continue
				}
				res := classifier.Classify(p)
				for _, a := range res.Anomalies {
					pkgLogger(ctx, name).Debug("unrecognised exports entry", "path", a.Path, "value", a.Raw)
				}
				results = append(results, res.Outcome(name))
			}
			spinner.Stop()

			if asJSON {
				if err := writeJSON(stdout, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					printClassification(r)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d packages could not be fetched", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached registry responses")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache entirely")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

// classifyFileCommand creates the classify-file command.
func (c *CLI) classifyFileCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify-file <packument.json>",
		Short: "Classify a packument or package.json saved on disk (use - for stdin)",
		Example: `  curl -s https://registry.npmjs.org/react | esmstat classify-file -
  esmstat classify-file testdata/react.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			classifier, err := newClassifier(cfg)
			if err != nil {
				return err
			}

			p, err := readPackument(args[0])
			if err != nil {
				return err
			}
			res := classifier.Classify(p).Outcome(p.Name)

			if asJSON {
				return writeJSON(stdout, res)
			}
			printClassification(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

// readPackument decodes a packument from path, or stdin for "-". A file
// named package.json is read as a single manifest.
func readPackument(path string) (*classify.Packument, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	if strings.EqualFold(filepath.Base(path), "package.json") {
		var m classify.Manifest
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode manifest %s: %w", path, err)
		}
		p := classify.PackumentOf(m)
		npm.Normalize(p)
		return p, nil
	}

	var p classify.Packument
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode packument %s: %w", path, err)
	}
	npm.Normalize(&p)
	return &p, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
