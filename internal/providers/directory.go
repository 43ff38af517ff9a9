// Package providers resolves source-system provider names to short aliases.
package providers

import (
	"sort"
	"strings"
)

// Directory provides in-memory lookup from provider spellings to aliases.
type Directory struct {
	aliases []string
	byName  map[string]string // normalized spelling -> alias
}

// New creates a Directory from an alias -> spellings map.
// Later aliases never steal a spelling already claimed by an earlier one (in
// sorted alias order), so lookups are deterministic.
func New(spellings map[string][]string) *Directory {
	d := &Directory{byName: make(map[string]string)}
	for alias := range spellings {
		d.aliases = append(d.aliases, alias)
	}
	sort.Strings(d.aliases)

	for _, alias := range d.aliases {
		for _, name := range append([]string{alias}, spellings[alias]...) {
			key := normalize(name)
			if _, taken := d.byName[key]; !taken {
				d.byName[key] = alias
			}
		}
	}
	return d
}

// Alias returns the alias for a source-system provider name.
func (d *Directory) Alias(name string) (string, bool) {
	alias, ok := d.byName[normalize(name)]
	return alias, ok
}

// Resolve returns the alias for name, or name itself when it is unmapped.
func (d *Directory) Resolve(name string) string {
	if alias, ok := d.Alias(name); ok {
		return alias
	}
	return strings.TrimSpace(name)
}

// Aliases returns all configured aliases, sorted.
func (d *Directory) Aliases() []string {
	return append([]string(nil), d.aliases...)
}

// normalize folds case and collapses runs of whitespace.
func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
