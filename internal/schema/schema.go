// Package schema implements the Standard Schema (C1): a static,
// declarative registry of canonical field names, aliases, types, and
// sheet affinity, loaded once from fields.yaml and never mutated after
// construction.
package schema

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wikisoft/rosterval/internal/domain"
)

//go:embed fields.yaml
var fieldsYAML []byte

type fieldDoc struct {
	Canonical string   `yaml:"canonical"`
	Type      string   `yaml:"type"`
	Required  bool     `yaml:"required"`
	Sheet     string   `yaml:"sheet"`
	Aliases   []string `yaml:"aliases"`
	Examples  []string `yaml:"examples"`
}

type registryDoc struct {
	Fields []fieldDoc `yaml:"fields"`
}

// Registry is the Standard Schema surface: fields(sheet), required(sheet)
// and resolve(alias), plus the alias index construction-time invariants
// spec.md §4.1 names (canonical names globally unique; an alias never
// collides with another field's canonical name).
type Registry struct {
	fields []domain.FieldDescriptor
	// aliasIndex maps a normalized alias or canonical name to the
	// owning canonical field name. Built in declaration order so ties
	// are resolved first-declared-wins.
	aliasIndex map[string]string
}

var punctuation = regexp.MustCompile(`[\s\-_./()\[\]{}:,]+`)

// Normalize applies the case-insensitive, punctuation-insensitive
// comparison the Matcher also uses: lowercase, then collapse all
// whitespace/punctuation runs to nothing.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return punctuation.ReplaceAllString(s, "")
}

// Default loads and validates the embedded field registry. It panics
// on a malformed registry — that is a Logical-kind error, discovered at
// process startup, never at request time.
func Default() *Registry {
	r, err := Load(fieldsYAML)
	if err != nil {
		panic(fmt.Sprintf("schema: invalid embedded registry: %v", err))
	}
	return r
}

// Load parses and validates a YAML-encoded field registry.
func Load(data []byte) (*Registry, error) {
	var doc registryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse registry: %w", err)
	}

	reg := &Registry{
		fields:     make([]domain.FieldDescriptor, 0, len(doc.Fields)),
		aliasIndex: make(map[string]string),
	}

	for _, fd := range doc.Fields {
		canon := fd.Canonical
		if canon == "" {
			return nil, fmt.Errorf("schema: field with empty canonical name")
		}
		normCanon := Normalize(canon)
		if owner, exists := reg.aliasIndex[normCanon]; exists {
			return nil, fmt.Errorf("schema: duplicate canonical name %q (already owned by %q)", canon, owner)
		}

		fdesc := domain.FieldDescriptor{
			Canonical: canon,
			Type:      domain.DataType(fd.Type),
			Required:  fd.Required,
			Affinity:  domain.Sheet(fd.Sheet),
			Aliases:   append([]string{}, fd.Aliases...),
			Examples:  append([]string{}, fd.Examples...),
		}
		reg.fields = append(reg.fields, fdesc)
		reg.aliasIndex[normCanon] = canon

		for _, alias := range fd.Aliases {
			normAlias := Normalize(alias)
			if normAlias == "" {
				continue
			}
			// First-declared wins: an alias that collides with an
			// already-registered canonical name or alias keeps pointing
			// at whichever field declared it first.
			if _, exists := reg.aliasIndex[normAlias]; exists {
				continue
			}
			reg.aliasIndex[normAlias] = canon
		}
	}

	return reg, nil
}

// Fields returns the descriptors whose affinity matches sheet or is "all".
func (r *Registry) Fields(sheet domain.Sheet) []domain.FieldDescriptor {
	out := make([]domain.FieldDescriptor, 0, len(r.fields))
	for _, f := range r.fields {
		if f.Affinity.Matches(sheet) {
			out = append(out, f)
		}
	}
	return out
}

// All returns every field descriptor regardless of sheet affinity.
func (r *Registry) All() []domain.FieldDescriptor {
	out := make([]domain.FieldDescriptor, len(r.fields))
	copy(out, r.fields)
	return out
}

// Required returns the canonical names required for the given sheet.
func (r *Registry) Required(sheet domain.Sheet) []string {
	var out []string
	for _, f := range r.fields {
		if f.Required && f.Affinity.Matches(sheet) {
			out = append(out, f.Canonical)
		}
	}
	return out
}

// Resolve maps an input header/alias to its canonical field name, or
// "" if unrecognized. An input that matches both a canonical name and
// an alias resolves to the canonical owner (the alias index is never
// permitted to point elsewhere — see Load).
func (r *Registry) Resolve(header string) string {
	norm := Normalize(header)
	if norm == "" {
		return ""
	}
	return r.aliasIndex[norm]
}

// Find returns the FieldDescriptor for a canonical name, if present.
func (r *Registry) Find(canonical string) (domain.FieldDescriptor, bool) {
	for _, f := range r.fields {
		if f.Canonical == canonical {
			return f, true
		}
	}
	return domain.FieldDescriptor{}, false
}
