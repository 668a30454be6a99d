// Package imports scans JavaScript/TypeScript sources for import
// declarations and builds the file-level import graph from them.
package imports

import (
	"regexp"
	"sort"
	"strings"
)

// Binding is a default or namespace import.
type Binding struct {
	Name     string `json:"name"`
	TypeOnly bool   `json:"typeOnly,omitempty"`
}

// NamedImport is one entry of a brace list.
type NamedImport struct {
	Name     string `json:"name"`
	Alias    string `json:"alias,omitempty"`
	TypeOnly bool   `json:"typeOnly,omitempty"`
}

// Descriptor is one import declaration.
type Descriptor struct {
	Specifier        string        `json:"specifier"`
	Default          *Binding      `json:"defaultImport,omitempty"`
	Namespace        *Binding      `json:"namespaceImport,omitempty"`
	Named            []NamedImport `json:"namedImports,omitempty"`
	IsSideEffectOnly bool          `json:"isSideEffectOnly,omitempty"`
}

// Symbols returns the display names of the bindings, each suffixed with
// " (type)" when type-only.
func (d Descriptor) Symbols() []string {
	var out []string
	decorate := func(name string, typeOnly bool) string {
		if typeOnly {
			return name + " (type)"
		}
		return name
	}
	if d.Default != nil {
		out = append(out, decorate(d.Default.Name, d.Default.TypeOnly))
	}
	if d.Namespace != nil {
		out = append(out, decorate("* as "+d.Namespace.Name, d.Namespace.TypeOnly))
	}
	for _, n := range d.Named {
		name := n.Name
		if n.Alias != "" {
			name += " as " + n.Alias
		}
		out = append(out, decorate(name, n.TypeOnly))
	}
	return out
}

// Statements start at the beginning of a line or after a semicolon.
var (
	// import <clause> from '<specifier>'; the clause may span lines.
	fromImportRe = regexp.MustCompile(`(?m)(?:^|;)[ \t]*import\s+([^'";]*?)\s*\bfrom\s*['"]([^'"\n]*)['"]`)
	// import '<specifier>'
	sideEffectImportRe = regexp.MustCompile(`(?m)(?:^|;)[ \t]*import\s*['"]([^'"\n]*)['"]`)
	// import [type] Name = require('<specifier>')
	requireImportRe = regexp.MustCompile(`(?m)(?:^|;)[ \t]*import\s+(type\s+)?([A-Za-z_$][\w$]*)\s*=\s*require\s*\(\s*['"]([^'"\n]*)['"]\s*\)`)

	importKeywordRe = regexp.MustCompile(`\bimport\b`)

	typePrefixRe = regexp.MustCompile(`^type\s+`)
	namespaceRe  = regexp.MustCompile(`^\*\s*as\s+([A-Za-z_$][\w$]*)$`)
	identRe      = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	aliasRe      = regexp.MustCompile(`\s+as\s+`)
)

type positioned struct {
	offset int
	desc   Descriptor
}

// ExtractImportDescriptors returns the import declarations of a source text
// in source order. It is a lexical scan: statements it cannot make sense of
// are skipped.
func ExtractImportDescriptors(source string) []Descriptor {
	source = maskComments(source)
	var found []positioned

	for pos := 0; pos < len(source); {
		m := fromImportRe.FindStringSubmatchIndex(source[pos:])
		if m == nil {
			break
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += pos
			}
		}
		clause := source[m[2]:m[3]]
		// A clause swallowing another import keyword started at a
		// statement without "from"; rescan from the inner keyword.
		if loc := importKeywordRe.FindStringIndex(clause); loc != nil {
			pos = m[2] + loc[0]
			continue
		}
		pos = m[1]
		spec := strings.TrimSpace(source[m[4]:m[5]])
		if spec == "" {
			continue
		}
		d, ok := parseClause(clause)
		if !ok {
			continue
		}
		d.Specifier = spec
		found = append(found, positioned{m[0], d})
	}

	for _, m := range sideEffectImportRe.FindAllStringSubmatchIndex(source, -1) {
		spec := strings.TrimSpace(source[m[2]:m[3]])
		if spec == "" {
			continue
		}
		found = append(found, positioned{m[0], Descriptor{Specifier: spec, IsSideEffectOnly: true}})
	}

	for _, m := range requireImportRe.FindAllStringSubmatchIndex(source, -1) {
		spec := strings.TrimSpace(source[m[6]:m[7]])
		if spec == "" {
			continue
		}
		found = append(found, positioned{m[0], Descriptor{
			Specifier: spec,
			Default:   &Binding{Name: source[m[4]:m[5]], TypeOnly: m[2] >= 0},
		}})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })
	out := make([]Descriptor, 0, len(found))
	for _, p := range found {
		out = append(out, p.desc)
	}
	return out
}

// parseClause parses the bindings between "import" and "from".
func parseClause(clause string) (Descriptor, bool) {
	var d Descriptor
	clause = strings.TrimSpace(clause)
	clauseType := false
	if loc := typePrefixRe.FindStringIndex(clause); loc != nil {
		clauseType = true
		clause = clause[loc[1]:]
	}

	head := clause
	braces := false
	if open := strings.Index(clause, "{"); open >= 0 {
		braces = true
		end := strings.LastIndex(clause, "}")
		if end < open {
			return d, false
		}
		head = clause[:open]
		for _, item := range strings.Split(clause[open+1:end], ",") {
			if n, ok := parseNamed(item, clauseType); ok {
				d.Named = append(d.Named, n)
			}
		}
		if strings.TrimSpace(clause[end+1:]) != "" {
			return d, false
		}
	}

	for _, part := range strings.Split(head, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case namespaceRe.MatchString(part):
			d.Namespace = &Binding{Name: namespaceRe.FindStringSubmatch(part)[1], TypeOnly: clauseType}
		case identRe.MatchString(part):
			d.Default = &Binding{Name: part, TypeOnly: clauseType}
		default:
			return Descriptor{}, false
		}
	}

	if d.Default == nil && d.Namespace == nil && len(d.Named) == 0 {
		// import {} from '<specifier>' binds nothing.
		if braces {
			d.IsSideEffectOnly = true
			return d, true
		}
		return d, false
	}
	return d, true
}

// maskComments blanks out comments and template literal bodies, keeping
// newlines so offsets and line anchors are preserved.
func maskComments(source string) string {
	b := []byte(source)
	blank := func(i int) {
		if b[i] != '\n' {
			b[i] = ' '
		}
	}
	for i := 0; i < len(b); i++ {
		switch c := b[i]; {
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			for ; i < len(b) && b[i] != '\n'; i++ {
				blank(i)
			}
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			blank(i)
			blank(i + 1)
			for i += 2; i < len(b); i++ {
				if b[i] == '*' && i+1 < len(b) && b[i+1] == '/' {
					blank(i)
					blank(i + 1)
					i++
					break
				}
				blank(i)
			}
		case c == '\'' || c == '"':
			for i++; i < len(b) && b[i] != c && b[i] != '\n'; i++ {
				if b[i] == '\\' {
					i++
				}
			}
		case c == '`':
			for i++; i < len(b) && b[i] != '`'; i++ {
				if b[i] == '\\' && i+1 < len(b) {
					blank(i)
					i++
				}
				blank(i)
			}
		}
	}
	return string(b)
}

func parseNamed(item string, clauseType bool) (NamedImport, bool) {
	item = strings.TrimSpace(item)
	typeOnly := clauseType
	if loc := typePrefixRe.FindStringIndex(item); loc != nil {
		typeOnly = true
		item = strings.TrimSpace(item[loc[1]:])
	}
	if item == "" {
		return NamedImport{}, false
	}
	n := NamedImport{TypeOnly: typeOnly}
	if parts := aliasRe.Split(item, 2); len(parts) == 2 {
		n.Name = strings.TrimSpace(parts[0])
		n.Alias = strings.TrimSpace(parts[1])
	} else {
		n.Name = item
	}
	if n.Name == "" {
		return NamedImport{}, false
	}
	return n, true
}
