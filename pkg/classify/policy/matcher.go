package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Matcher is one rule. Exactly one field must be set.
type Matcher struct {
	Exact     string `toml:"exact,omitempty" yaml:"exact,omitempty"`
	Substring string `toml:"substring,omitempty" yaml:"substring,omitempty"`
	Prefix    string `toml:"prefix,omitempty" yaml:"prefix,omitempty"`
	Regex     string `toml:"regex,omitempty" yaml:"regex,omitempty"`

	re *regexp.Regexp
}

func (m *Matcher) compile() error {
	set := 0
	for _, v := range []string{m.Exact, m.Substring, m.Prefix, m.Regex} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of exact, substring, prefix or regex must be set")
	}
	if m.Regex != "" {
		re, err := regexp.Compile(m.Regex)
		if err != nil {
			return fmt.Errorf("compile regex: %w", err)
		}
		m.re = re
	}
	return nil
}

// Match reports whether s satisfies the rule. Matching is case-sensitive.
func (m *Matcher) Match(s string) bool {
	switch {
	case m.Exact != "":
		return s == m.Exact
	case m.Substring != "":
		return strings.Contains(s, m.Substring)
	case m.Prefix != "":
		return strings.HasPrefix(s, m.Prefix)
	case m.re != nil:
		return m.re.MatchString(s)
	}
	return false
}

func (m *Matcher) String() string {
	switch {
	case m.Exact != "":
		return "exact:" + m.Exact
	case m.Substring != "":
		return "substring:" + m.Substring
	case m.Prefix != "":
		return "prefix:" + m.Prefix
	default:
		return "regex:" + m.Regex
	}
}
