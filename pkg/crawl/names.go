package crawl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	errs "github.com/matzehuels/esmstat/pkg/errors"
)

// TextFetcher downloads a plain text document.
type TextFetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

// LoadNames reads the package list from source, a local path or an
// http(s) URL. The list is either a JSON array of strings or one name per
// line; blank lines and lines starting with '#' are ignored. Duplicates are
// dropped, keeping the first occurrence.
func LoadNames(ctx context.Context, source string, web TextFetcher) ([]string, error) {
	if source == "" {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "no package list configured")
	}

	var text string
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if web == nil {
			return nil, errs.New(errs.ErrCodeInvalidConfig, "cannot download package list %s", source)
		}
		body, err := web.GetText(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("download package list: %w", err)
		}
		text = body
	} else {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read package list: %w", err)
		}
		text = string(data)
	}

	names, err := ParseNames(text)
	if err != nil {
		return nil, fmt.Errorf("parse package list %s: %w", source, err)
	}
	return names, nil
}

// ParseNames parses a package list in either supported format.
func ParseNames(text string) ([]string, error) {
	var raw []string
	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return nil, err
		}
	} else {
		sc := bufio.NewScanner(strings.NewReader(text))
		for sc.Scan() {
			raw = append(raw, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(raw))
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" || strings.HasPrefix(n, "#") || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names, nil
}
