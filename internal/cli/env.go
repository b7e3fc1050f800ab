// Package cli holds the hazmatctl administration commands.
package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/pkg/config"
	"github.com/noah-isme/hazmat-api/pkg/database"
	"github.com/noah-isme/hazmat-api/pkg/logger"
)

// Env is the database-backed runtime shared by commands that touch storage.
type Env struct {
	Config *config.Config
	DB     *sqlx.DB
	Logger *zap.Logger
}

// Close releases the database and flushes the logger.
func (e *Env) Close() {
	if e.DB != nil {
		_ = e.DB.Close()
	}
	if e.Logger != nil {
		_ = e.Logger.Sync()
	}
}

// Opener builds an Env. Tests replace it to avoid a live database.
type Opener func(ctx context.Context) (*Env, error)

// OpenEnv loads configuration, connects to Postgres and ensures the schema.
func OpenEnv(ctx context.Context) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Connect(ctx, cfg.Database, logr)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Env{Config: cfg, DB: db, Logger: logr}, nil
}
