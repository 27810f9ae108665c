package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thimbleforth/ditto-fde-takehome/internal/api"
	"github.com/thimbleforth/ditto-fde-takehome/internal/auth"
	"github.com/thimbleforth/ditto-fde-takehome/internal/config"
	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
)

// Cloud holds everything the cloud process serves with.
type Cloud struct {
	Config     config.CloudConfig
	Logger     *slog.Logger
	Store      *store.Store
	Feed       *engine.Feed
	Reconciler *engine.Reconciler
	Server     *api.Server
}

// NewCloud opens the Version Store, loads the verification key, and wires
// the reconciler and transport server.
func NewCloud(cfg config.CloudConfig, logger *slog.Logger) (*Cloud, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	verifier, err := auth.LoadVerifier(cfg.PublicKeyPath, auth.WithLeeway(cfg.TokenLeeway))
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}

	if err := ensureDir(cfg.DBPath); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open version store: %w", err)
	}

	feed := engine.NewFeed(engine.DefaultFeedBuffer)
	rec := engine.New(st, logger.With("component", "reconciler"),
		engine.WithAppendTimeout(cfg.AppendTimeout),
		engine.WithFeed(feed),
	)
	srv := api.NewServer(rec, verifier, logger.With("component", "api"),
		api.WithPinger(st),
		api.WithFeed(feed),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	return &Cloud{
		Config:     cfg,
		Logger:     logger,
		Store:      st,
		Feed:       feed,
		Reconciler: rec,
		Server:     srv,
	}, nil
}

// Close releases the Version Store.
func (c *Cloud) Close() error {
	c.Feed.Close()
	return c.Store.Close()
}

// OpenReadOnlyStore opens a Version Store file for offline inspection.
// Unlike NewCloud it needs no key, refuses to create a missing file, and
// never writes to the file.
func OpenReadOnlyStore(path string) (*store.Store, error) {
	return store.OpenReadOnly(path)
}

// ensureDir creates the parent directory of a database file.
func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return nil
}
