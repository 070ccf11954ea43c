package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/swipepad/internal/domain"
)

// Format is a catalog file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("catalog %s: unsupported extension (want .json, .yaml or .yml)", path)
}

// Catalog is an immutable, validated list of projects in file order.
// Safe for concurrent use.
type Catalog struct {
	projects   []domain.Project
	byID       map[string]int
	categories []string
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog data. Unknown fields are errors.
func Parse(data []byte, format Format) (*Catalog, error) {
	var projects []domain.Project

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&projects); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&projects); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	return New(projects)
}

// New validates projects and builds a catalog over a copy of them.
func New(projects []domain.Project) (*Catalog, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		projects: make([]domain.Project, len(projects)),
		byID:     make(map[string]int, len(projects)),
	}
	copy(c.projects, projects)

	seen := make(map[string]bool)
	for i, p := range c.projects {
		if err := v.validate(i, p); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, &RecordError{Index: i, ID: p.ID, Message: "duplicate id"}
		}
		c.byID[p.ID] = i

		key := CategoryKey(p.Category)
		if !seen[key] {
			seen[key] = true
			c.categories = append(c.categories, p.Category)
		}
	}
	slices.SortFunc(c.categories, func(a, b string) int {
		return strings.Compare(CategoryKey(a), CategoryKey(b))
	})
	return c, nil
}

// CategoryKey is the comparison form of a category name.
func CategoryKey(category string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(category)))
}

// Len returns the number of projects.
func (c *Catalog) Len() int { return len(c.projects) }

// List returns the projects in category, in file order. An empty category
// returns every project. The result is a fresh slice.
func (c *Catalog) List(category string) []domain.Project {
	if strings.TrimSpace(category) == "" {
		return slices.Clone(c.projects)
	}
	key := CategoryKey(category)
	var out []domain.Project
	for _, p := range c.projects {
		if CategoryKey(p.Category) == key {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the project with the given id.
func (c *Catalog) Get(id string) (domain.Project, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Project{}, false
	}
	return c.projects[i], true
}

// Categories returns the distinct categories, sorted, each spelled as it
// first appears in the file.
func (c *Catalog) Categories() []string {
	return slices.Clone(c.categories)
}

// Shuffled returns List(category) in a random order drawn from r.
func (c *Catalog) Shuffled(category string, r *rand.Rand) []domain.Project {
	out := c.List(category)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Random returns one project of category drawn from r, or false if the
// category is empty.
func (c *Catalog) Random(category string, r *rand.Rand) (domain.Project, bool) {
	list := c.List(category)
	if len(list) == 0 {
		return domain.Project{}, false
	}
	return list[r.IntN(len(list))], true
}
