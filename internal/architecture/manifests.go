package architecture

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// detectApplications creates one application component per workspace folder.
func detectApplications(_ context.Context, r *run) error {
	for _, folder := range r.deps.Folders.Folders() {
		r.model.addComponent(Component{
			Key:        appKey(folder),
			Kind:       KindApplication,
			Label:      appLabel(folder),
			Confidence: 0.5,
			Tags:       []string{"application"},
			Location:   folder,
			Evidence: []Evidence{{
				Description: "Workspace folder",
				Resource:    folder,
				Confidence:  0.5,
			}},
		})
	}
	return nil
}

type packageJSON struct {
	Name             string            `json:"name"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Scripts          map[string]string `json:"scripts"`
}

func (p *packageJSON) allDependencies() map[string]string {
	all := make(map[string]string)
	for _, deps := range []map[string]string{p.PeerDependencies, p.DevDependencies, p.Dependencies} {
		for name, version := range deps {
			all[name] = version
		}
	}
	return all
}

func (p *packageJSON) language(deps map[string]string) string {
	for _, sig := range typeScriptSignals {
		if _, ok := deps[sig]; ok {
			return "TypeScript"
		}
	}
	for name := range deps {
		if strings.HasPrefix(name, "@types/") {
			return "TypeScript"
		}
	}
	for _, script := range p.Scripts {
		if strings.Contains(script, "tsc") || strings.Contains(script, "ts-node") {
			return "TypeScript"
		}
	}
	return "JavaScript"
}

var nodeTables = []map[string]techEntry{
	nodeFrontendFrameworks,
	nodeBackendFrameworks,
	nodeDatabaseClients,
	nodeCacheClients,
	nodeMessageBusClients,
}

// detectNodeEcosystem matches package.json dependencies against the Node tables.
func detectNodeEcosystem(ctx context.Context, r *run) error {
	for _, folder := range r.deps.Folders.Folders() {
		data, path, err := r.readManifest(ctx, folder, "package.json")
		if err != nil {
			r.warn(fmt.Sprintf("Could not read %s: %v", path, err))
			continue
		}
		if data == nil {
			continue
		}
		var pkg packageJSON
		if err := json.Unmarshal(data, &pkg); err != nil {
			r.warn(fmt.Sprintf("Could not parse %s: %v", path, err))
			continue
		}

		deps := pkg.allDependencies()
		r.model.addComponent(Component{
			Key:        appKey(folder),
			Language:   pkg.language(deps),
			Technology: "Node.js",
			Tags:       []string{"node"},
			Metadata:   map[string]interface{}{"packageName": pkg.Name},
		})

		var stores []string
		for _, name := range sortedKeys(deps) {
			for _, table := range nodeTables {
				e, ok := table[name]
				if !ok {
					continue
				}
				key := r.registerTech(folder, e, Evidence{
					Description: fmt.Sprintf("Dependency %s@%s in package.json", name, deps[name]),
					Resource:    path,
					Confidence:  e.Confidence,
				}, "node")
				if isDatastore(e.Kind) {
					stores = append(stores, key)
				}
			}
		}
		r.linkBackends(folder, stores)
	}
	return nil
}

func isDatastore(kind ComponentKind) bool {
	switch kind {
	case KindDatabase, KindCache, KindQueue, KindMessageBus:
		return true
	}
	return false
}

// requirementNameRe captures the project name of a PEP 508 requirement.
var requirementNameRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)

func normalizePythonName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// parseRequirements extracts package names from requirements.txt content.
func parseRequirements(data []byte) []string {
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if m := requirementNameRe.FindStringSubmatch(line); m != nil {
			names = append(names, normalizePythonName(m[1]))
		}
	}
	return names
}

type pyproject struct {
	Project struct {
		Name                 string              `toml:"name"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]interface{} `toml:"dependencies"`
			DevDependencies map[string]interface{} `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]interface{} `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// parsePyproject extracts package names from PEP 621 and Poetry sections.
func parsePyproject(data []byte) ([]string, error) {
	var pp pyproject
	if err := gotoml.Unmarshal(data, &pp); err != nil {
		return nil, err
	}
	var names []string
	addRequirement := func(req string) {
		if m := requirementNameRe.FindStringSubmatch(strings.TrimSpace(req)); m != nil {
			names = append(names, normalizePythonName(m[1]))
		}
	}
	for _, req := range pp.Project.Dependencies {
		addRequirement(req)
	}
	for _, group := range pp.Project.OptionalDependencies {
		for _, req := range group {
			addRequirement(req)
		}
	}
	poetry := []map[string]interface{}{pp.Tool.Poetry.Dependencies, pp.Tool.Poetry.DevDependencies}
	for _, g := range pp.Tool.Poetry.Group {
		poetry = append(poetry, g.Dependencies)
	}
	for _, deps := range poetry {
		for name := range deps {
			if name != "python" {
				names = append(names, normalizePythonName(name))
			}
		}
	}
	return names, nil
}

// detectPythonEcosystem matches requirements.txt and pyproject.toml packages.
func detectPythonEcosystem(ctx context.Context, r *run) error {
	for _, folder := range r.deps.Folders.Folders() {
		packages := make(map[string]string)

		data, path, err := r.readManifest(ctx, folder, "requirements.txt")
		if err != nil {
			r.warn(fmt.Sprintf("Could not read %s: %v", path, err))
		}
		for _, name := range parseRequirements(data) {
			packages[name] = path
		}

		data, path, err = r.readManifest(ctx, folder, "pyproject.toml")
		switch {
		case err != nil:
			r.warn(fmt.Sprintf("Could not read %s: %v", path, err))
		case data != nil:
			names, err := parsePyproject(data)
			if err != nil {
				r.warn(fmt.Sprintf("Could not parse %s: %v", path, err))
			}
			for _, name := range names {
				if _, ok := packages[name]; !ok {
					packages[name] = path
				}
			}
		}

		if len(packages) == 0 {
			continue
		}
		r.model.addComponent(Component{
			Key:        appKey(folder),
			Language:   "Python",
			Technology: "Python",
			Tags:       []string{"python"},
		})

		var stores []string
		for _, name := range sortedKeys(packages) {
			for _, table := range []map[string]techEntry{pythonBackendFrameworks, pythonDatastores} {
				e, ok := table[name]
				if !ok {
					continue
				}
				key := r.registerTech(folder, e, Evidence{
					Description: fmt.Sprintf("Python package %s", name),
					Resource:    packages[name],
					Confidence:  e.Confidence,
				}, "python")
				if isDatastore(e.Kind) {
					stores = append(stores, key)
				}
			}
		}
		r.linkBackends(folder, stores)
	}
	return nil
}

func matchModulePath(table map[string]techEntry, path string) (techEntry, bool) {
	for _, prefix := range sortedKeys(table) {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return table[prefix], true
		}
	}
	return techEntry{}, false
}

// detectGoEcosystem matches go.mod requirements by module path prefix.
func detectGoEcosystem(ctx context.Context, r *run) error {
	for _, folder := range r.deps.Folders.Folders() {
		data, path, err := r.readManifest(ctx, folder, "go.mod")
		if err != nil {
			r.warn(fmt.Sprintf("Could not read %s: %v", path, err))
			continue
		}
		if data == nil {
			continue
		}
		f, err := modfile.ParseLax(path, data, nil)
		if err != nil {
			r.warn(fmt.Sprintf("Could not parse %s: %v", path, err))
			continue
		}

		md := map[string]interface{}{}
		if f.Module != nil {
			md["modulePath"] = f.Module.Mod.Path
		}
		r.model.addComponent(Component{
			Key:        appKey(folder),
			Language:   "Go",
			Technology: "Go",
			Tags:       []string{"go"},
			Metadata:   md,
		})

		var stores []string
		for _, req := range f.Require {
			for _, table := range []map[string]techEntry{goBackendFrameworks, goDatastores} {
				e, ok := matchModulePath(table, req.Mod.Path)
				if !ok {
					continue
				}
				key := r.registerTech(folder, e, Evidence{
					Description: fmt.Sprintf("Go module %s %s", req.Mod.Path, req.Mod.Version),
					Resource:    path,
					Confidence:  e.Confidence,
				}, "go")
				if isDatastore(e.Kind) {
					stores = append(stores, key)
				}
			}
		}
		r.linkBackends(folder, stores)
	}
	return nil
}

type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Dependencies map[string]toml.Primitive `toml:"dependencies"`
}

// detectRustEcosystem substring-matches Cargo.toml dependency names.
func detectRustEcosystem(ctx context.Context, r *run) error {
	for _, folder := range r.deps.Folders.Folders() {
		data, path, err := r.readManifest(ctx, folder, "Cargo.toml")
		if err != nil {
			r.warn(fmt.Sprintf("Could not read %s: %v", path, err))
			continue
		}
		if data == nil {
			continue
		}
		var manifest cargoManifest
		meta, err := toml.Decode(string(data), &manifest)
		if err != nil {
			r.warn(fmt.Sprintf("Could not parse %s: %v", path, err))
			continue
		}
		r.model.addComponent(Component{
			Key:        appKey(folder),
			Language:   "Rust",
			Technology: "Rust",
			Tags:       []string{"rust"},
		})
		if !meta.IsDefined("dependencies") {
			continue
		}

		var stores []string
		for _, name := range sortedKeys(manifest.Dependencies) {
			for _, table := range [][]struct {
				Fragment string
				Entry    techEntry
			}{rustBackendCrates, rustDatastoreCrates} {
				for _, c := range table {
					if !strings.Contains(name, c.Fragment) {
						continue
					}
					key := r.registerTech(folder, c.Entry, Evidence{
						Description: fmt.Sprintf("Crate %s in Cargo.toml", name),
						Resource:    path,
						Confidence:  c.Entry.Confidence,
					}, "rust")
					if isDatastore(c.Entry.Kind) {
						stores = append(stores, key)
					}
					break
				}
			}
		}
		r.linkBackends(folder, stores)
	}
	return nil
}

var composeFiles = []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"}

var composeImageLineRe = regexp.MustCompile(`(?m)^\s*image:\s*["']?([^"'\s#]+)`)

type composeFile struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

type composeService struct {
	name  string
	image string
}

// parseCompose returns the services with an image. Files that are not valid
// YAML fall back to a line scan for image: entries.
func parseCompose(data []byte) ([]composeService, error) {
	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		var out []composeService
		for _, m := range composeImageLineRe.FindAllStringSubmatch(string(data), -1) {
			out = append(out, composeService{image: m[1]})
		}
		return out, err
	}
	var out []composeService
	for _, name := range sortedKeys(cf.Services) {
		if img := cf.Services[name].Image; img != "" {
			out = append(out, composeService{name: name, image: img})
		}
	}
	return out, nil
}

// detectCompose infers infrastructure from compose service images.
func detectCompose(ctx context.Context, r *run) error {
	for _, folder := range r.deps.Folders.Folders() {
		for _, name := range composeFiles {
			data, path, err := r.readManifest(ctx, folder, name)
			if err != nil {
				r.warn(fmt.Sprintf("Could not read %s: %v", path, err))
				continue
			}
			if data == nil {
				continue
			}
			services, err := parseCompose(data)
			if err != nil {
				r.warn(fmt.Sprintf("Could not parse %s as YAML, scanned image lines instead: %v", path, err))
			}

			var stores []string
			for _, svc := range services {
				image := strings.ToLower(svc.image)
				for _, c := range composeImages {
					if !strings.Contains(image, c.Fragment) {
						continue
					}
					key := techKey(c.Entry.Kind, c.Entry.ID, folder)
					md := map[string]interface{}{"images": []interface{}{svc.image}}
					if svc.name != "" {
						md["services"] = []interface{}{svc.name}
					}
					r.model.addComponent(Component{
						Key:        key,
						Kind:       c.Entry.Kind,
						Label:      c.Entry.Label,
						Confidence: c.Entry.Confidence,
						Technology: c.Entry.Label,
						Tags:       []string{c.Entry.Kind.String(), "infrastructure", "docker-compose"},
						Location:   path,
						Metadata:   md,
						Evidence: []Evidence{{
							Description: fmt.Sprintf("Compose image %s", svc.image),
							Resource:    path,
							Snippet:     "image: " + svc.image,
							Confidence:  c.Entry.Confidence,
						}},
					})
					r.model.addRelationship(Relationship{
						Source:      appKey(folder),
						Target:      key,
						Kind:        RelDependsOn,
						Confidence:  c.Entry.Confidence,
						Description: fmt.Sprintf("%s depends on %s (docker compose)", appLabel(folder), c.Entry.Label),
					})
					stores = append(stores, key)
					break
				}
			}
			r.linkBackends(folder, stores)
		}
	}
	return nil
}
