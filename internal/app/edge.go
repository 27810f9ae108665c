package app

import (
	"fmt"
	"log/slog"

	"github.com/thimbleforth/ditto-fde-takehome/internal/auth"
	"github.com/thimbleforth/ditto-fde-takehome/internal/config"
	"github.com/thimbleforth/ditto-fde-takehome/internal/edge"
)

// Edge holds everything an edge process syncs with.
type Edge struct {
	Config config.EdgeConfig
	Logger *slog.Logger
	Log    *edge.Log
	Issuer *auth.Issuer
	Client *edge.Client
	Agent  *edge.Agent
}

// NewEdge opens the local edge log, loads the signing key, and wires the
// transport client and sync agent for cfg.User.
func NewEdge(cfg config.EdgeConfig, logger *slog.Logger) (*Edge, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("edge user is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("user", cfg.User)

	issuer, err := auth.LoadIssuer(cfg.PrivateKeyPath, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	if err := ensureDir(cfg.DBPath); err != nil {
		return nil, err
	}
	log, err := edge.OpenLog(cfg.DBPath, cfg.User)
	if err != nil {
		return nil, err
	}

	client := edge.NewClient(cfg.CloudURL, cfg.User, issuer, cfg.RequestTimeout, logger.With("component", "client"))
	agent := edge.NewAgent(log, client, logger.With("component", "agent"))

	return &Edge{
		Config: cfg,
		Logger: logger,
		Log:    log,
		Issuer: issuer,
		Client: client,
		Agent:  agent,
	}, nil
}

// Close releases the edge log.
func (e *Edge) Close() error {
	return e.Log.Close()
}
