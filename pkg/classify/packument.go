package classify

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Packument is the part of an npm registry document the classifier reads.
type Packument struct {
	Name        string              `json:"name"`
	DistTags    map[string]string   `json:"dist-tags,omitempty"`
	Versions    map[string]Manifest `json:"versions,omitempty"`
	Description string              `json:"description,omitempty"`
	Readme      string              `json:"readme,omitempty"`
	Repository  Repository          `json:"repository,omitzero"`
}

// Manifest is the package.json of one published version.
type Manifest struct {
	Name        string       `json:"name,omitempty"`
	Version     string       `json:"version,omitempty"`
	Exports     *ExportsNode `json:"exports,omitempty"`
	Main        string       `json:"main,omitempty"`
	Type        string       `json:"type,omitempty"`
	Module      string       `json:"module,omitempty"`
	Description string       `json:"description,omitempty"`
	Repository  Repository   `json:"repository,omitzero"`
	Publisher   Person       `json:"_npmUser,omitzero"`
}

// PackumentOf wraps a local package.json as a packument whose only version,
// tagged "latest", is m. A manifest without a version is filed as 0.0.0.
func PackumentOf(m Manifest) *Packument {
	v := m.Version
	if v == "" {
		v = "0.0.0"
	}
	return &Packument{
		Name:        m.Name,
		DistTags:    map[string]string{"latest": v},
		Versions:    map[string]Manifest{v: m},
		Description: m.Description,
		Repository:  m.Repository,
	}
}

// Latest returns the version tagged "latest", or "" when there is none.
func (p *Packument) Latest() string {
	return p.DistTags["latest"]
}

// LatestManifest returns the manifest of the latest version.
func (p *Packument) LatestManifest() (*Manifest, bool) {
	latest := p.Latest()
	if latest == "" {
		return nil, false
	}
	m, ok := p.Versions[latest]
	if !ok {
		return nil, false
	}
	return &m, true
}

// UnmarshalJSON decodes a registry document. Fields of the wrong JSON type
// are treated as absent; versions that are not objects, null included, are
// dropped.
func (p *Packument) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        json.RawMessage            `json:"name"`
		DistTags    map[string]json.RawMessage `json:"dist-tags"`
		Versions    map[string]json.RawMessage `json:"versions"`
		Description json.RawMessage            `json:"description"`
		Readme      json.RawMessage            `json:"readme"`
		Repository  Repository                 `json:"repository"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Packument{
		Name:        looseString(raw.Name),
		Description: looseString(raw.Description),
		Readme:      looseString(raw.Readme),
		Repository:  raw.Repository,
	}
	if len(raw.DistTags) > 0 {
		p.DistTags = make(map[string]string, len(raw.DistTags))
		for tag, v := range raw.DistTags {
			if s := looseString(v); s != "" {
				p.DistTags[tag] = s
			}
		}
	}
	if len(raw.Versions) > 0 {
		p.Versions = make(map[string]Manifest, len(raw.Versions))
		for version, v := range raw.Versions {
			if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
				continue
			}
			var m Manifest
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			p.Versions[version] = m
		}
	}
	return nil
}

// UnmarshalJSON decodes a version manifest leniently: string fields holding
// another JSON type decode as "".
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        json.RawMessage `json:"name"`
		Version     json.RawMessage `json:"version"`
		Exports     *ExportsNode    `json:"exports"`
		Main        json.RawMessage `json:"main"`
		Type        json.RawMessage `json:"type"`
		Module      json.RawMessage `json:"module"`
		Description json.RawMessage `json:"description"`
		Repository  Repository      `json:"repository"`
		Publisher   Person          `json:"_npmUser"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Manifest{
		Name:        looseString(raw.Name),
		Version:     looseString(raw.Version),
		Exports:     raw.Exports,
		Main:        looseString(raw.Main),
		Type:        looseString(raw.Type),
		Module:      looseString(raw.Module),
		Description: looseString(raw.Description),
		Repository:  raw.Repository,
		Publisher:   raw.Publisher,
	}
	return nil
}

// Repository is the "repository" field, which npm accepts either as a
// shorthand string ("npm/security-holder") or as {type, url}.
type Repository struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// String returns the URL or shorthand.
func (r Repository) String() string { return r.URL }

// UnmarshalJSON accepts the string and object forms and ignores anything else.
func (r *Repository) UnmarshalJSON(data []byte) error {
	*r = Repository{}
	var s string
	if json.Unmarshal(data, &s) == nil {
		r.URL = s
		return nil
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) == nil {
		r.Type = looseString(obj["type"])
		r.URL = looseString(obj["url"])
	}
	return nil
}

// Person is an npm user reference such as "_npmUser".
type Person struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts {name, email} and the "Name <email>" string form.
func (p *Person) UnmarshalJSON(data []byte) error {
	*p = Person{}
	var s string
	if json.Unmarshal(data, &s) == nil {
		name, email, _ := strings.Cut(s, "<")
		p.Name = strings.TrimSpace(name)
		p.Email = strings.TrimSuffix(strings.TrimSpace(email), ">")
		return nil
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) == nil {
		p.Name = looseString(obj["name"])
		p.Email = looseString(obj["email"])
	}
	return nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
