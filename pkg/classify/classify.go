package classify

import (
	"fmt"
	"strings"
)

const (
	esmExtension = ".mjs"
	cjsExtension = ".cjs"
)

// Reason explains why a packument was not classified.
type Reason string

const (
	ReasonNoLatest       Reason = "no latest version"
	ReasonMissingVersion Reason = "latest version missing"
	ReasonSecurityHolder Reason = "security holder"
	ReasonSpamText       Reason = "spam text"
	ReasonTemplate       Reason = "template description"
	ReasonSpamName       Reason = "spam name"
	ReasonSpamPublisher  Reason = "spam publisher"
)

// Result is the outcome of classifying one packument. Either Style is set,
// or Skipped is true and Reason says why.
type Result struct {
	Style     Style
	Skipped   bool
	Reason    Reason
	Detail    string    // matched rule or version, for diagnostics
	Anomalies []Anomaly // unrecognised nodes found in "exports"
}

// Outcome is the reporting view of a Result for one named package, as
// printed by the CLI and returned by the HTTP API. Error is set instead of
// a Result when the packument could not be fetched.
type Outcome struct {
	Name      string   `json:"name"`
	Style     Style    `json:"style,omitempty"`
	Skipped   bool     `json:"skipped,omitempty"`
	Reason    Reason   `json:"reason,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	Anomalies []string `json:"anomalies,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Outcome returns the reporting view of r for the package name.
func (r Result) Outcome(name string) Outcome {
	out := Outcome{
		Name:    name,
		Style:   r.Style,
		Skipped: r.Skipped,
		Reason:  r.Reason,
		Detail:  r.Detail,
	}
	for _, a := range r.Anomalies {
		out.Anomalies = append(out.Anomalies, a.String())
	}
	return out
}

// Anomaly records an exports node that is neither a path, null, list or map.
type Anomaly struct {
	Path string
	Raw  string
}

func (a Anomaly) String() string { return a.Path + ": " + a.Raw }

// Filter rejects noise packuments before classification.
// Check returns the reason and matched detail on the first rule that fires.
type Filter interface {
	Check(p *Packument, m *Manifest) (reason Reason, detail string, matched bool)
}

// Classifier assigns a [Style] to packuments. It holds no mutable state and
// is safe for concurrent use.
type Classifier struct {
	filter Filter
}

// New returns a Classifier that runs filter before classification.
// A nil filter disables spam filtering.
func New(filter Filter) *Classifier {
	return &Classifier{filter: filter}
}

// Classify classifies the manifest tagged "latest".
func (c *Classifier) Classify(p *Packument) Result {
	latest := p.Latest()
	if latest == "" {
		return Result{Skipped: true, Reason: ReasonNoLatest}
	}
	m, ok := p.Versions[latest]
	if !ok {
		return Result{Skipped: true, Reason: ReasonMissingVersion, Detail: latest}
	}
	if c.filter != nil {
		if reason, detail, hit := c.filter.Check(p, &m); hit {
			return Result{Skipped: true, Reason: reason, Detail: detail}
		}
	}
	style, anomalies := ClassifyManifest(&m)
	return Result{Style: style, Anomalies: anomalies}
}

// signals collects the evidence gathered from a subtree of "exports".
type signals struct {
	esm bool
	cjs bool
}

func (s signals) or(o signals) signals {
	return signals{esm: s.esm || o.esm, cjs: s.cjs || o.cjs}
}

// ClassifyManifest applies the format rules to a single manifest.
func ClassifyManifest(m *Manifest) (Style, []Anomaly) {
	faux := m.Module != ""

	var (
		s         signals
		anomalies []Anomaly
	)
	if m.Exports != nil {
		s, anomalies = walkRoot(*m.Exports)
	}

	// An explicit type opposite to a detected signal reads as deliberate dual.
	if s.esm && m.Type == "commonjs" {
		s.cjs = true
	}
	if s.cjs && m.Type == "module" {
		s.esm = true
	}

	if !s.esm && !s.cjs {
		if m.Type == "module" || strings.HasSuffix(m.Main, esmExtension) {
			s.esm = true
		} else {
			s.cjs = true
		}
	}

	switch {
	case s.esm && s.cjs:
		return StyleDual, anomalies
	case s.esm:
		return StyleESM, anomalies
	case faux:
		return StyleFaux, anomalies
	default:
		return StyleCJS, anomalies
	}
}

// walkRoot visits each top-level subpath. A top-level key without a leading
// "." is a condition on the root, so it is read as {".": value}, which visits
// the value itself.
func walkRoot(root ExportsNode) (signals, []Anomaly) {
	if root.Kind != NodeMap {
		return walk(root, "exports")
	}
	var (
		s         signals
		anomalies []Anomaly
	)
	for _, e := range root.Entries {
		node := e.Value
		if !strings.HasPrefix(e.Key, ".") {
			node = Map(Entry(".", e.Value))
		}
		es, ea := walk(node, fmt.Sprintf("exports[%q]", e.Key))
		s = s.or(es)
		anomalies = append(anomalies, ea...)
	}
	return s, anomalies
}

func walk(n ExportsNode, path string) (signals, []Anomaly) {
	switch n.Kind {
	case NodeList:
		var (
			s         signals
			anomalies []Anomaly
		)
		for i, item := range n.Items {
			is, ia := walk(item, fmt.Sprintf("%s[%d]", path, i))
			s = s.or(is)
			anomalies = append(anomalies, ia...)
		}
		return s, anomalies

	case NodeMap:
		if !n.HasSubpaths() {
			return conditions(n), nil
		}
		var (
			s         signals
			anomalies []Anomaly
		)
		for _, e := range n.Entries {
			if !strings.HasPrefix(e.Key, ".") {
				continue
			}
			es, ea := walk(e.Value, fmt.Sprintf("%s[%q]", path, e.Key))
			s = s.or(es)
			anomalies = append(anomalies, ea...)
		}
		return s, anomalies

	case NodeString:
		return extension(n.Path), nil

	case NodeNull:
		return signals{}, nil

	default:
		return signals{}, []Anomaly{{Path: path, Raw: string(n.Raw)}}
	}
}

// conditions reads a condition map. Nested values under the four known
// conditions are not walked further; only their truthiness and, for the
// node/default fallback, a string extension count.
func conditions(n ExportsNode) signals {
	truthy := func(key string) bool {
		v, ok := n.Get(key)
		return ok && v.Truthy()
	}

	imp := truthy("import")
	req := truthy("require")
	def := truthy("default")
	explicit := imp || req

	s := signals{
		esm: imp || (req && def),
		cjs: req || (imp && def),
	}

	if !explicit {
		fallback, ok := n.Get("node")
		if !ok || !fallback.Truthy() {
			fallback, ok = n.Get("default")
		}
		if ok && fallback.Kind == NodeString {
			s = s.or(extension(fallback.Path))
		}
	}
	return s
}

// extension marks a signal only for the format-specific extensions.
// Any other extension, including none, is inconclusive.
func extension(path string) signals {
	return signals{
		esm: strings.HasSuffix(path, esmExtension),
		cjs: strings.HasSuffix(path, cjsExtension),
	}
}
