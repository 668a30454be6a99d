package architecture

import (
	"time"

	"archlens/internal/config"
)

// Limits bounds the work and output of an analysis.
type Limits struct {
	CacheTTL            time.Duration // How long a result is served from cache (default 5m)
	MaxWorkspaceSymbols int           // Symbol hits considered across all fragments (default 120)
	MaxDatasetsPerApp   int           // Dataset components per application (default 150)
	SearchMaxResults    int           // Match cap per text search (default 2000)
}

// DefaultLimits returns the default analysis limits
func DefaultLimits() *Limits {
	return &Limits{
		CacheTTL:            5 * time.Minute,
		MaxWorkspaceSymbols: 120,
		MaxDatasetsPerApp:   150,
		SearchMaxResults:    2000,
	}
}

// LimitsFromConfig overrides the defaults with positive config values.
func LimitsFromConfig(cfg config.ArchitectureConfig) *Limits {
	l := DefaultLimits()
	if cfg.CacheTtlSeconds >= 0 {
		l.CacheTTL = time.Duration(cfg.CacheTtlSeconds) * time.Second
	}
	if cfg.MaxWorkspaceSymbols > 0 {
		l.MaxWorkspaceSymbols = cfg.MaxWorkspaceSymbols
	}
	if cfg.MaxDatasetsPerApp > 0 {
		l.MaxDatasetsPerApp = cfg.MaxDatasetsPerApp
	}
	if cfg.SearchMaxResults > 0 {
		l.SearchMaxResults = cfg.SearchMaxResults
	}
	return l
}
