// Package policy holds the noise filter run before classification.
//
// A [Policy] is data, not code: an ordered list of [Matcher] rules per
// field, loaded from TOML or YAML. [Default] returns the rules embedded in
// the binary. A loaded Policy is immutable and safe for concurrent use.
package policy

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
	"github.com/matzehuels/esmstat/pkg/integrations"
)

//go:embed default.toml
var defaultPolicy []byte

// Format names accepted by [Parse].
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Policy lists the rules for each checked field. Sections are checked in the
// order repository, text, templates, names, publishers.
type Policy struct {
	Repository []Matcher `toml:"repository" yaml:"repository"` // placeholder repositories
	Text       []Matcher `toml:"text" yaml:"text"`             // readme or description fingerprints
	Templates  []Matcher `toml:"templates" yaml:"templates"`   // scaffolded descriptions
	Names      []Matcher `toml:"names" yaml:"names"`           // package names
	Publishers []Matcher `toml:"publishers" yaml:"publishers"` // _npmUser names
}

// Default returns the embedded policy.
func Default() (*Policy, error) {
	return Parse(defaultPolicy, FormatTOML)
}

// Load reads a policy file. The format is chosen by extension:
// .yaml and .yml are YAML, everything else is TOML.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPolicy, err, "read policy %s", path)
	}
	format := FormatTOML
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return Parse(data, format)
}

// Parse decodes and validates a policy.
func Parse(data []byte, format string) (*Policy, error) {
	var p Policy
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidPolicy, err, "decode toml policy")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidPolicy, err, "decode yaml policy")
		}
	default:
		return nil, errs.New(errs.ErrCodeInvalidPolicy, "unsupported policy format %q", format)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) compile() error {
	sections := []struct {
		name  string
		rules []Matcher
	}{
		{"repository", p.Repository},
		{"text", p.Text},
		{"templates", p.Templates},
		{"names", p.Names},
		{"publishers", p.Publishers},
	}
	for _, s := range sections {
		for i := range s.rules {
			if err := s.rules[i].compile(); err != nil {
				return errs.Wrap(errs.ErrCodeInvalidPolicy, err, "%s rule %d", s.name, i+1)
			}
		}
	}
	return nil
}

// Check implements [classify.Filter].
func (p *Policy) Check(pk *classify.Packument, m *classify.Manifest) (classify.Reason, string, bool) {
	repos := repositoryForms(pk.Repository.String(), m.Repository.String())
	if rule, ok := firstMatch(p.Repository, repos...); ok {
		return classify.ReasonSecurityHolder, rule, true
	}

	descriptions := nonEmpty(pk.Description, m.Description)
	if rule, ok := firstMatch(p.Text, nonEmpty(append([]string{pk.Readme}, descriptions...)...)...); ok {
		return classify.ReasonSpamText, rule, true
	}
	if rule, ok := firstMatch(p.Templates, descriptions...); ok {
		return classify.ReasonTemplate, rule, true
	}
	if rule, ok := firstMatch(p.Names, pk.Name); ok {
		return classify.ReasonSpamName, rule, true
	}
	if rule, ok := firstMatch(p.Publishers, nonEmpty(m.Publisher.Name)...); ok {
		return classify.ReasonSpamPublisher, rule, true
	}
	return "", "", false
}

// Len returns the total number of rules.
func (p *Policy) Len() int {
	return len(p.Repository) + len(p.Text) + len(p.Templates) + len(p.Names) + len(p.Publishers)
}

func firstMatch(rules []Matcher, values ...string) (string, bool) {
	for i := range rules {
		for _, v := range values {
			if rules[i].Match(v) {
				return rules[i].String(), true
			}
		}
	}
	return "", false
}

// repositoryForms returns each repository as written and, when it differs,
// in canonical HTTPS form.
func repositoryForms(values ...string) []string {
	var out []string
	for _, v := range nonEmpty(values...) {
		out = append(out, v)
		if n := integrations.NormalizeRepoURL(v); n != v {
			out = append(out, n)
		}
	}
	return out
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

var _ classify.Filter = (*Policy)(nil)
