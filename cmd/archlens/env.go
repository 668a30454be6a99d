package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"archlens/internal/architecture"
	"archlens/internal/backends/scip"
	"archlens/internal/config"
	"archlens/internal/imports"
	"archlens/internal/paths"
	"archlens/internal/slogutil"
	"archlens/internal/workspace"
)

// env is what every command needs: config, logger and the workspace.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	folders *paths.Context
	fs      *workspace.LocalFS
}

// loadEnv reads the configuration of the first workspace folder.
func loadEnv() (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	anchor := cwd
	if len(rootFolders) > 0 {
		if p, ok := paths.FromURI(rootFolders[0]); ok {
			anchor = p
		}
	}

	cfg, err := config.LoadConfig(anchor)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	logger := slogutil.NewFormatLogger(os.Stderr, cfg.Logging.Format, level)

	folders := rootFolders
	if len(folders) == 0 {
		for _, f := range cfg.Workspace.Folders {
			if !filepath.IsAbs(f) {
				f = filepath.Join(anchor, f)
			}
			folders = append(folders, f)
		}
	}
	ctx, err := paths.NewContext(folders...)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:     cfg,
		logger:  logger,
		folders: ctx,
		fs:      workspace.NewLocalFS(cfg.Workspace.Exclude...),
	}, nil
}

func (e *env) importBuilder() *imports.Builder {
	return imports.NewBuilder(e.fs, e.fs, e.folders, imports.Options{
		Extensions:          e.cfg.Imports.Extensions,
		IgnoredSpecifiers:   e.cfg.Imports.IgnoredSpecifiers,
		Exclude:             e.cfg.Workspace.Exclude,
		MaxFiles:            e.cfg.Workspace.MaxFiles,
		ResolutionCacheSize: e.cfg.Imports.MaxResolutionCache,
	}, e.logger)
}

// analyzer wires the architecture analyzer, attaching the SCIP index when
// one is configured and present.
func (e *env) analyzer() *architecture.Analyzer {
	deps := architecture.Deps{
		Reader:  e.fs,
		Search:  e.fs,
		Folders: e.folders,
	}
	if e.cfg.Scip.Enabled {
		path := scip.IndexPath(e.folders.First(), e.cfg.Scip.IndexPath)
		idx, err := scip.LoadIndex(path, e.folders.First(), e.logger)
		if err != nil {
			e.logger.Debug("Workspace symbols unavailable", "error", err.Error())
		} else {
			deps.Symbols = idx
		}
	}
	return architecture.NewAnalyzer(deps, architecture.LimitsFromConfig(e.cfg.Architecture), e.logger)
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func durationMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
