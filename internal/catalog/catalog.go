// Package catalog resolves deep-sky target names and identifiers to J2000
// coordinates.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/star/darksky/internal/apperr"
	"github.com/star/darksky/internal/ephemeris"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

// Target is one catalog entry.
type Target struct {
	ID                string   `yaml:"id" json:"id"`
	PrimaryIdentifier string   `yaml:"primary_identifier" json:"primary_identifier"`
	Name              string   `yaml:"object_name" json:"object_name,omitempty"`
	Aliases           []string `yaml:"aliases" json:"aliases,omitempty"`
	Type              string   `yaml:"type" json:"type,omitempty"`
	RADeg             float64  `yaml:"ra" json:"ra"`
	DecDeg            float64  `yaml:"dec" json:"dec"`
}

// Coordinates returns the target's J2000 position.
func (t Target) Coordinates() ephemeris.Target {
	return ephemeris.Target{RADeg: t.RADeg, DecDeg: t.DecDeg}
}

// DisplayName is "M31 - Andromeda Galaxy", or the bare identifier when the
// object has no common name.
func (t Target) DisplayName() string {
	if t.Name == "" {
		return t.PrimaryIdentifier
	}
	return t.PrimaryIdentifier + " - " + t.Name
}

// Suggestion is a search hit.
type Suggestion struct {
	ID                string `json:"id"`
	PrimaryIdentifier string `json:"primary_identifier"`
	DisplayName       string `json:"display_name"`
}

// Resolver looks up a target by identifier or name.
type Resolver interface {
	Resolve(ctx context.Context, idOrName string) (Target, error)
}

// Catalog is an immutable in-memory target list. Safe for concurrent use.
type Catalog struct {
	targets []Target
	index   map[string]int
}

type catalogFile struct {
	Targets []Target `yaml:"targets"`
}

// Load parses a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return build(f.Targets)
}

// LoadFile parses the YAML catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Load(strings.NewReader(string(defaultCatalog)))
}

func build(targets []Target) (*Catalog, error) {
	c := &Catalog{
		targets: targets,
		index:   make(map[string]int, len(targets)*3),
	}
	for i, t := range targets {
		if t.ID == "" || t.PrimaryIdentifier == "" {
			return nil, fmt.Errorf("catalog: entry %d: id and primary_identifier are required", i)
		}
		if t.RADeg < 0 || t.RADeg >= 360 || t.DecDeg < -90 || t.DecDeg > 90 {
			return nil, fmt.Errorf("catalog: %s: coordinates out of range", t.ID)
		}
		keys := append([]string{t.ID, t.PrimaryIdentifier, t.Name}, t.Aliases...)
		for _, k := range keys {
			nk := normalize(k)
			if nk == "" {
				continue
			}
			if j, dup := c.index[nk]; dup && j != i {
				return nil, fmt.Errorf("catalog: %q names both %s and %s", k, targets[j].ID, t.ID)
			}
			c.index[nk] = i
		}
	}
	return c, nil
}

// normalize folds case and drops whitespace, so "M 31", "m31" and "M31"
// are the same key.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// Len returns the number of targets.
func (c *Catalog) Len() int { return len(c.targets) }

// Resolve finds a target by id, primary identifier, common name or alias.
func (c *Catalog) Resolve(_ context.Context, idOrName string) (Target, error) {
	if i, ok := c.index[normalize(idOrName)]; ok {
		return c.targets[i], nil
	}
	return Target{}, apperr.New(apperr.CodeTargetNotFound, fmt.Sprintf("target %q not found", idOrName))
}

// Search returns up to limit targets whose primary identifier or common
// name starts with prefix, in catalog order. An empty prefix matches
// nothing.
func (c *Catalog) Search(prefix string, limit int) []Suggestion {
	p := normalize(prefix)
	out := []Suggestion{}
	if p == "" {
		return out
	}
	for _, t := range c.targets {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.HasPrefix(normalize(t.PrimaryIdentifier), p) || strings.HasPrefix(normalize(t.Name), p) {
			out = append(out, Suggestion{
				ID:                t.ID,
				PrimaryIdentifier: t.PrimaryIdentifier,
				DisplayName:       t.DisplayName(),
			})
		}
	}
	return out
}

var _ Resolver = (*Catalog)(nil)
