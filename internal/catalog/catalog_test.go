package catalog

import (
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swipepad/internal/domain"
)

func TestLoad_JSON(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "projects.json"))
	require.NoError(t, err)

	assert.Equal(t, 5, c.Len())

	p, ok := c.Get("mangrove-restore")
	require.True(t, ok)
	assert.Equal(t, "Mangrove Restore", p.Name)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", p.RecipientAddress)
	assert.True(t, p.Verified)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLoad_YAML(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "projects.yaml"))
	require.NoError(t, err)

	ids := make([]string, 0, c.Len())
	for _, p := range c.List("") {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"mangrove-restore", "open-classrooms"}, ids)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contains string
	}{
		{"bad address", "bad_address.json", "project 1 (broken)"},
		{"unknown field", "unknown_field.yaml", "fundingGoal"},
		{"missing file", "nope.json", "read catalog"},
		{"extension", "projects.txt", "unsupported extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestNew_SchemaRules(t *testing.T) {
	valid := domain.Project{
		ID:               "p1",
		Name:             "Project",
		Category:         "Climate",
		RecipientAddress: "0xAbCdEf0123456789abcdef0123456789ABCDEF01",
	}

	tests := []struct {
		name   string
		mutate func(*domain.Project)
	}{
		{"empty id", func(p *domain.Project) { p.ID = "" }},
		{"id with spaces", func(p *domain.Project) { p.ID = "has space" }},
		{"empty name", func(p *domain.Project) { p.Name = "" }},
		{"empty category", func(p *domain.Project) { p.Category = "" }},
		{"short address", func(p *domain.Project) { p.RecipientAddress = "0xabc" }},
		{"no prefix", func(p *domain.Project) { p.RecipientAddress = "AbCdEf0123456789abcdef0123456789ABCDEF0123" }},
		{"non hex", func(p *domain.Project) { p.RecipientAddress = "0xZZCdEf0123456789abcdef0123456789ABCDEF01" }},
	}

	_, err := New([]domain.Project{valid})
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := New([]domain.Project{p})
			require.Error(t, err)

			var re *RecordError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, 0, re.Index)
		})
	}
}

func TestNew_DuplicateID(t *testing.T) {
	p := domain.Project{
		ID:               "dup",
		Name:             "Dup",
		Category:         "Climate",
		RecipientAddress: "0x1111111111111111111111111111111111111111",
	}
	_, err := New([]domain.Project{p, p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestNew_Empty(t *testing.T) {
	c, err := Parse([]byte("[]"), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.List(""))
	assert.Empty(t, c.Categories())
}

func TestList_CategoryNormalisation(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "projects.json"))
	require.NoError(t, err)

	for _, q := range []string{"Climate", "climate", "  CLIMATE "} {
		got := c.List(q)
		require.Len(t, got, 2, "query %q", q)
		assert.Equal(t, "mangrove-restore", got[0].ID)
		assert.Equal(t, "solar-villages", got[1].ID)
	}

	assert.Empty(t, c.List("Art"))
	assert.Len(t, c.List(""), 5)
}

func TestList_ReturnsCopy(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "projects.json"))
	require.NoError(t, err)

	got := c.List("")
	got[0].RecipientAddress = "0xedited"

	p, _ := c.Get(got[0].ID)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", p.RecipientAddress)
}

func TestCategoryKey(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é" under NFC.
	assert.Equal(t, CategoryKey("Cafe\u0301"), CategoryKey("caf\u00e9"))
	assert.Equal(t, CategoryKey("STRASSE"), CategoryKey("strasse"))
}

func TestCategories(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "projects.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Celo Builders", "Climate", "Education", "Health"}, c.Categories())
}

func TestShuffledAndRandom(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "projects.json"))
	require.NoError(t, err)

	a := c.Shuffled("", rand.New(rand.NewPCG(7, 7)))
	b := c.Shuffled("", rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
	assert.ElementsMatch(t, c.List(""), a)

	p, ok := c.Random("education", rand.New(rand.NewPCG(1, 1)))
	require.True(t, ok)
	assert.Equal(t, "open-classrooms", p.ID)

	_, ok = c.Random("Art", rand.New(rand.NewPCG(1, 1)))
	assert.False(t, ok)
}
