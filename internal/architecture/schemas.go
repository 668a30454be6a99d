package architecture

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"archlens/internal/workspace"
)

var (
	prismaModelRe      = regexp.MustCompile(`(?ms)^\s*model\s+([A-Za-z_]\w*)\s*\{(.*?)^\s*\}`)
	prismaDatasourceRe = regexp.MustCompile(`(?ms)^\s*datasource\s+\w+\s*\{(.*?)^\s*\}`)
	prismaProviderRe   = regexp.MustCompile(`provider\s*=\s*"(\w+)"`)

	createTableRe = regexp.MustCompile("(?is)\\bCREATE\\s+TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?[`\"\\[]?([\\w.]+)[`\"\\]]?\\s*\\((.*?)\\)\\s*;")
)

var prismaProviders = map[string]techEntry{
	"postgresql":  {"postgresql", "PostgreSQL", KindDatabase, 0.75},
	"cockroachdb": {"cockroachdb", "CockroachDB", KindDatabase, 0.75},
	"mysql":       {"mysql", "MySQL", KindDatabase, 0.75},
	"sqlite":      {"sqlite", "SQLite", KindDatabase, 0.7},
	"mongodb":     {"mongodb", "MongoDB", KindDatabase, 0.75},
	"sqlserver":   {"sqlserver", "SQL Server", KindDatabase, 0.75},
}

// sqlConstraintWords start table-level constraints rather than columns.
var sqlConstraintWords = map[string]bool{
	"PRIMARY": true, "FOREIGN": true, "CONSTRAINT": true, "UNIQUE": true,
	"KEY": true, "INDEX": true, "CHECK": true, "EXCLUDE": true,
}

// schemaField is one Prisma field or SQL column.
type schemaField struct {
	Name string
	Type string
}

type schemaModel struct {
	Name   string
	Fields []schemaField
}

func parsePrismaModels(text string) []schemaModel {
	var out []schemaModel
	for _, m := range prismaModelRe.FindAllStringSubmatch(text, -1) {
		model := schemaModel{Name: m[1]}
		for _, line := range strings.Split(m[2], "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "@@") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			model.Fields = append(model.Fields, schemaField{Name: fields[0], Type: fields[1]})
		}
		out = append(out, model)
	}
	return out
}

func parsePrismaProvider(text string) string {
	if m := prismaDatasourceRe.FindStringSubmatch(text); m != nil {
		if p := prismaProviderRe.FindStringSubmatch(m[1]); p != nil {
			return strings.ToLower(p[1])
		}
	}
	return ""
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, ch := range s {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func parseCreateTables(text string) []schemaModel {
	var out []schemaModel
	for _, m := range createTableRe.FindAllStringSubmatch(text, -1) {
		table := schemaModel{Name: m[1]}
		for _, col := range splitTopLevel(m[2]) {
			fields := strings.Fields(col)
			if len(fields) == 0 {
				continue
			}
			name := strings.Trim(fields[0], "`\"[]")
			if sqlConstraintWords[strings.ToUpper(name)] {
				continue
			}
			f := schemaField{Name: name}
			if len(fields) > 1 {
				f.Type = fields[1]
			}
			table.Fields = append(table.Fields, f)
		}
		out = append(out, table)
	}
	return out
}

func fieldMetadata(fields []schemaField) []interface{} {
	out := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]interface{}{"name": f.Name, "type": f.Type})
	}
	return out
}

// detectSchemas registers Prisma models and SQL tables as datasets.
func detectSchemas(ctx context.Context, r *run) error {
	sources := []struct {
		glob   string
		kind   string
		parse  func(string) []schemaModel
		conf   float64
		prisma bool
	}{
		{"**/*.prisma", "prisma", parsePrismaModels, 0.7, true},
		{"**/*.sql", "sql", parseCreateTables, 0.65, false},
	}

	for _, src := range sources {
		res, err := r.deps.Search.FindFiles(ctx, workspace.FileQuery{
			Folders:    r.deps.Folders.Folders(),
			Include:    []string{src.glob},
			MaxResults: r.limits.SearchMaxResults,
		})
		if err != nil {
			return err
		}
		if res.LimitHit {
			r.warn(fmt.Sprintf("Schema search for %s files reached its result limit; some schemas were not scanned.", src.kind))
		}

		for _, file := range res.Files {
			data, err := r.deps.Reader.ReadFile(ctx, file)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.warn(fmt.Sprintf("Could not read %s: %v", file, err))
				continue
			}
			text := string(data)
			folder := r.appFor(file)

			if src.prisma {
				if e, ok := prismaProviders[parsePrismaProvider(text)]; ok {
					key := r.registerTech(folder, e, Evidence{
						Description: "Prisma datasource provider " + e.Label,
						Resource:    file,
						Confidence:  e.Confidence,
					}, "prisma")
					r.linkBackends(folder, []string{key})
				}
			}

			for _, model := range src.parse(text) {
				r.registerDataset(folder, model.Name, src.kind, Evidence{
					Description: fmt.Sprintf("%s schema defines %s", src.kind, model.Name),
					Resource:    file,
					Confidence:  src.conf,
				}, map[string]interface{}{
					"fields": fieldMetadata(model.Fields),
					"schema": file,
				})
			}
		}
	}
	return nil
}
