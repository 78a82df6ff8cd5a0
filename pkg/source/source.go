package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"rfm-segments/pkg/config"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/models"
)

// Load reads every order line from the configured source. The kind is taken
// from cfg.ResolvedKind; a Path of "-" reads CSV from stdin.
func Load(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) ([]models.OrderLine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kind := cfg.ResolvedKind()
	logger.Debug("loading order lines", zap.String("kind", kind), zap.String("path", cfg.Path))

	switch kind {
	case config.KindMySQL, config.KindPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("source %s: dsn is required", kind)
		}
		db, driver, err := database.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		logger.Info("connected", zap.String("driver", driver))
		return database.LoadOrderLines(ctx, db, database.LoadOptions{
			Table:    cfg.Table,
			Progress: cfg.Progress,
			Logger:   logger,
		})

	case config.KindXLSX, config.KindCSV:
		r, closeFn, err := open(cfg.Path)
		if err != nil {
			return nil, err
		}
		defer closeFn()

		var lines []models.OrderLine
		if kind == config.KindXLSX {
			lines, err = ReadXLSX(r, cfg.Sheet)
		} else {
			lines, err = ReadCSV(r, csvOptionsFor(cfg)...)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Path, err)
		}
		logger.Info("order lines read", zap.String("path", cfg.Path), zap.Int("rows", len(lines)))
		return lines, nil
	}
	return nil, fmt.Errorf("unsupported source kind %q", kind)
}

func csvOptionsFor(cfg config.SourceConfig) []CSVOption {
	opts := []CSVOption{WithEncoding(cfg.Encoding)}
	if cfg.Delimiter != "" {
		opts = append(opts, WithDelimiter([]rune(cfg.Delimiter)[0]))
	}
	return opts
}

func open(path string) (io.Reader, func(), error) {
	if path == "" {
		return nil, nil, fmt.Errorf("source path is required")
	}
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
