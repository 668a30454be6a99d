package architecture

import (
	"fmt"
)

// registry indexes component keys per application so later passes can link
// datasets and HTTP calls to the backends of the same application, and caps
// dataset discovery per application.
type registry struct {
	backends   map[string][]string
	frontends  map[string][]string
	datasets   map[string][]string
	known      map[string]bool
	warned     map[string]bool
	maxPerApp  int
	datasetAll []string
}

func newRegistry(maxDatasetsPerApp int) *registry {
	return &registry{
		backends:  make(map[string][]string),
		frontends: make(map[string][]string),
		datasets:  make(map[string][]string),
		known:     make(map[string]bool),
		warned:    make(map[string]bool),
		maxPerApp: maxDatasetsPerApp,
	}
}

func (r *registry) add(index map[string][]string, app, key string) {
	for _, k := range index[app] {
		if k == key {
			return
		}
	}
	index[app] = append(index[app], key)
}

func (r *registry) registerBackend(app, key string)  { r.add(r.backends, app, key) }
func (r *registry) registerFrontend(app, key string) { r.add(r.frontends, app, key) }

// backendsOf returns the backends of app in registration order.
func (r *registry) backendsOf(app string) []string { return r.backends[app] }

func (r *registry) frontendsOf(app string) []string { return r.frontends[app] }

// admitDataset reports whether a dataset key may be created for app. Keys
// already admitted are always accepted. Once the cap is reached, warn is
// non-empty exactly once per application.
func (r *registry) admitDataset(app, appLabel, key string) (ok bool, warn string) {
	if r.known[key] {
		return true, ""
	}
	if r.maxPerApp > 0 && len(r.datasets[app]) >= r.maxPerApp {
		if !r.warned[app] {
			r.warned[app] = true
			warn = fmt.Sprintf("Dataset limit of %d reached for application %s; additional models and tables were skipped.", r.maxPerApp, appLabel)
		}
		return false, warn
	}
	r.known[key] = true
	r.datasets[app] = append(r.datasets[app], key)
	r.datasetAll = append(r.datasetAll, key)
	return true, ""
}

func (r *registry) datasetCount() int { return len(r.datasetAll) }
