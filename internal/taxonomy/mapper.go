// Package taxonomy resolves free-form category text into the closed
// category set.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"saldo/internal/core"
)

//go:embed aliases.yaml
var defaultAliases []byte

// AliasConfig is the YAML layout of an alias table.
type AliasConfig struct {
	Categories map[string][]string `yaml:"categories"`
}

// Mapper maps user or wire text to a core.Category.
type Mapper struct {
	aliases map[string]core.Category
}

// Default returns the mapper built from the embedded alias table.
func Default() *Mapper {
	m, err := parse(defaultAliases)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded aliases: %v", err))
	}
	return m
}

// Load builds a mapper from the embedded table extended by the aliases in
// path. An empty path yields Default().
func Load(path string) (*Mapper, error) {
	m := Default()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}
	extra, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("alias file %s: %w", path, err)
	}
	for k, c := range extra.aliases {
		m.aliases[k] = c
	}
	return m, nil
}

func parse(data []byte) (*Mapper, error) {
	var cfg AliasConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	m := &Mapper{aliases: make(map[string]core.Category)}
	for _, c := range core.Categories() {
		m.aliases[fold(string(c))] = c
		m.aliases[fold(c.Label())] = c
	}
	for name, aliases := range cfg.Categories {
		c := core.Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidCategory, name)
		}
		for _, a := range aliases {
			if k := fold(a); k != "" {
				m.aliases[k] = c
			}
		}
	}
	return m, nil
}

// Resolve returns the category raw names, or Uncategorized when nothing
// matches.
func (m *Mapper) Resolve(raw string) core.Category {
	if c, ok := m.aliases[fold(raw)]; ok {
		return c
	}
	return core.CategoryUncategorized
}

// Lookup is Resolve with an explicit miss.
func (m *Mapper) Lookup(raw string) (core.Category, bool) {
	c, ok := m.aliases[fold(raw)]
	return c, ok
}

// fold lowercases s, strips accents and collapses inner whitespace.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
