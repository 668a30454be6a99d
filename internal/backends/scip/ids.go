package scip

import (
	"strings"
)

// identifier is a parsed SCIP symbol string:
// <scheme> <manager> <package> <version> <descriptor>
//
//	scip-typescript npm app 1.0.0 src/`users.ts`/UserService#
//	scip-go gomod example.com/app abc123 `example.com/app/api`/NewServer().
type identifier struct {
	Scheme     string
	Package    string
	Descriptor string
}

func parseIdentifier(symbol string) (identifier, bool) {
	if symbol == "" || strings.HasPrefix(symbol, "local ") {
		return identifier{}, false
	}
	parts := strings.SplitN(symbol, " ", 5)
	if len(parts) < 4 {
		return identifier{}, false
	}
	id := identifier{Scheme: parts[0], Package: parts[2]}
	if len(parts) == 4 {
		id.Descriptor = parts[3]
	} else {
		id.Descriptor = parts[4]
	}
	return id, true
}

// descriptorNames splits a descriptor into its names, dropping backtick
// quoting and the suffix markers (/ # . ( ) [ ] : !).
func descriptorNames(descriptor string) []string {
	var (
		names   []string
		current strings.Builder
		quoted  bool
		inParen bool
	)
	flush := func() {
		if current.Len() > 0 {
			names = append(names, current.String())
			current.Reset()
		}
	}
	for _, r := range descriptor {
		switch {
		case r == '`':
			quoted = !quoted
		case quoted:
			current.WriteRune(r)
		case r == '(':
			flush()
			inParen = true
		case r == ')':
			inParen = false
		case inParen:
			// method disambiguator
		case strings.ContainsRune("/#.[]:!", r):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return names
}

// simpleName is the last descriptor name: "api`/Server#Start()." -> "Start".
func (id identifier) simpleName() string {
	names := descriptorNames(id.Descriptor)
	if len(names) == 0 {
		return ""
	}
	return names[len(names)-1]
}

// containerName is the enclosing name, if any: "Server" for Server#Start().
func (id identifier) containerName() string {
	names := descriptorNames(id.Descriptor)
	if len(names) < 2 {
		return ""
	}
	return names[len(names)-2]
}

// kindFromDescriptor infers a kind from the descriptor suffix when the
// index does not record one.
func (id identifier) kindFromDescriptor() string {
	d := strings.TrimSpace(id.Descriptor)
	switch {
	case d == "":
		return ""
	case strings.HasSuffix(d, ")."):
		return "Method"
	case strings.HasSuffix(d, "#"):
		return "Class"
	case strings.HasSuffix(d, "/"):
		return "Namespace"
	case strings.HasSuffix(d, "."):
		return "Variable"
	}
	return ""
}
