package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/config"
	"github.com/quotemaker-dev/quotemaker/internal/export"
	"github.com/quotemaker-dev/quotemaker/internal/logging"
	"github.com/quotemaker-dev/quotemaker/internal/render"
	"github.com/quotemaker-dev/quotemaker/internal/savepoint"
	"github.com/quotemaker-dev/quotemaker/internal/session"
)

// env is what every document command needs: config, logger and session.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	session *session.Session
}

// loadConfig reads cfgPath (or defaults when missing) and resolves relative
// directories against the config file's directory.
func loadConfig(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.Resolve(filepath.Dir(cfgPath))

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

func openEnv(ctx context.Context, cfgPath string) (*env, error) {
	cfg, logger, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	s, err := session.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening state: %w", err)
	}
	return &env{cfg: cfg, logger: logger, session: s}, nil
}

func (e *env) Close() {
	if err := e.session.Close(); err != nil {
		e.logger.Warn("Failed to close state store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

func (e *env) saveClient() *savepoint.Client {
	if e.cfg.SaveEndpoint.URL == "" {
		return nil
	}
	return savepoint.NewClient(e.cfg.SaveEndpoint.URL, e.cfg.SaveEndpoint.Timeout)
}

func (e *env) exporter() *export.Exporter {
	r := render.New(render.Options{
		FontPath: e.cfg.Render.FontPath,
		DPI:      e.cfg.Render.DPI,
	}, e.logger)

	var saver export.Saver
	if client := e.saveClient(); client != nil {
		saver = client
	}
	return export.New(r, saver, export.Options{
		OutputDir: e.cfg.Export.OutputDir,
		LogPath:   e.cfg.ExportLogPath(),
	}, e.logger)
}
