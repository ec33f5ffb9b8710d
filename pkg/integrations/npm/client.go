package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/esmstat/pkg/buildinfo"
	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
	"github.com/matzehuels/esmstat/pkg/httputil"
	"github.com/matzehuels/esmstat/pkg/integrations"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

// RegistryError reports a failed packument fetch.
type RegistryError struct {
	Package string
	Err     error
}

func (e *RegistryError) Error() string { return "npm " + e.Package + ": " + e.Err.Error() }
func (e *RegistryError) Unwrap() error { return e.Err }

// Client fetches packuments from an npm registry.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a Client for the registry at baseURL. An empty baseURL
// means [DefaultRegistry]. token, if set, is sent as a bearer token.
func NewClient(cache httputil.Cache, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultRegistry
	}
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": buildinfo.UserAgent(),
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(cache, headers),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// BaseURL returns the registry root.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPackument fetches the full registry document for name and trims it
// to the manifest tagged "latest". Trimmed documents are cached under
// "npm:<name>"; refresh bypasses the cache.
func (c *Client) FetchPackument(ctx context.Context, name string, refresh bool) (*classify.Packument, error) {
	name = strings.TrimSpace(name)
	if err := errs.ValidateNpmPackageName(name); err != nil {
		return nil, &RegistryError{Package: name, Err: err}
	}

	var p classify.Packument
	err := c.Cached(ctx, "npm:"+name, refresh, &p, func() error {
		return c.fetch(ctx, name, &p)
	})
	if err != nil {
		return nil, &RegistryError{Package: name, Err: err}
	}
	return &p, nil
}

func (c *Client) fetch(ctx context.Context, name string, p *classify.Packument) error {
	var doc registryDocument
	if err := c.Get(ctx, c.baseURL+"/"+EscapeName(name), &doc); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, name)
		}
		return err
	}

	trimmed, err := json.Marshal(doc.trim())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(trimmed, p); err != nil {
		return fmt.Errorf("decode packument %s: %w", name, err)
	}
	Normalize(p)
	return nil
}

// EscapeName percent-encodes the slash of a scoped name the way the
// registry expects ("@scope/pkg" becomes "@scope%2fpkg").
func EscapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name, "/", "%2f", 1)
	}
	return name
}

// Normalize rewrites repository URLs into canonical HTTPS form so policy
// rules can match them exactly.
func Normalize(p *classify.Packument) {
	p.Repository.URL = integrations.NormalizeRepoURL(p.Repository.URL)
	for v, m := range p.Versions {
		m.Repository.URL = integrations.NormalizeRepoURL(m.Repository.URL)
		p.Versions[v] = m
	}
}

// registryDocument keeps every field as raw JSON so that only the latest
// manifest is decoded.
type registryDocument struct {
	Name        json.RawMessage            `json:"name,omitempty"`
	DistTags    map[string]json.RawMessage `json:"dist-tags,omitempty"`
	Versions    map[string]json.RawMessage `json:"versions,omitempty"`
	Description json.RawMessage            `json:"description,omitempty"`
	Readme      json.RawMessage            `json:"readme,omitempty"`
	Repository  json.RawMessage            `json:"repository,omitempty"`
}

func (d registryDocument) trim() registryDocument {
	out := d
	out.Versions = nil
	var latest string
	if raw, ok := d.DistTags["latest"]; ok && json.Unmarshal(raw, &latest) == nil {
		if m, ok := d.Versions[latest]; ok {
			out.Versions = map[string]json.RawMessage{latest: m}
		}
	}
	return out
}
