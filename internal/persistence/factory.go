package persistence

import (
	"context"
	"database/sql"

	"wisefido-nurse/internal/common/config"
	"wisefido-nurse/internal/common/database"

	"go.uber.org/zap"
)

// 远端模式
const (
	ModeNone     = "none"
	ModePostgres = "postgres"
	ModeREST     = "rest"
)

// Config 远端选择
type Config struct {
	Mode          string                `yaml:"mode"`
	Postgres      config.DatabaseConfig `yaml:"postgres"`
	NotifyChannel string                `yaml:"notify_channel"`
	REST          RESTConfig            `yaml:"rest"`
	// TriggeredBy 写入 emergencies.triggered_by 的人员 id
	TriggeredBy string `yaml:"triggered_by"`
}

// Open 按配置构造 Remote；缺少连接信息或连接失败时退化为 Nop
// 返回的 closer 释放底层连接
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Remote, func()) {
	noop := func() {}

	switch cfg.Mode {
	case "", ModeNone:
		return Nop{}, noop

	case ModePostgres:
		if !cfg.Postgres.IsConfigured() {
			logger.Warn("Postgres remote selected but not configured, using no-op remote")
			return Nop{}, noop
		}
		db, err := database.NewPostgresDB(ctx, &cfg.Postgres)
		if err != nil {
			logger.Error("Failed to connect to Postgres remote, using no-op remote", zap.Error(err))
			return Nop{}, noop
		}
		logger.Info("Using Postgres remote",
			zap.String("host", cfg.Postgres.Host),
			zap.String("database", cfg.Postgres.Database),
		)
		remote := NewPostgresRemote(db, cfg.Postgres.GetDSN(), cfg.NotifyChannel, cfg.TriggeredBy, logger)
		return remote, func() { closeDB(db, logger) }

	case ModeREST:
		if cfg.REST.BaseURL == "" || cfg.REST.APIKey == "" {
			logger.Warn("REST remote selected but URL or API key missing, using no-op remote")
			return Nop{}, noop
		}
		logger.Info("Using REST remote", zap.String("base_url", cfg.REST.BaseURL))
		return NewRESTRemote(cfg.REST, cfg.TriggeredBy, logger), noop

	default:
		logger.Warn("Unknown remote mode, using no-op remote", zap.String("mode", cfg.Mode))
		return Nop{}, noop
	}
}

func closeDB(db *sql.DB, logger *zap.Logger) {
	if err := database.Close(db); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}
}
