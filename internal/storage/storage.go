// Package storage opens the configured backend and hands out the catalog and library stores.
package storage

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/catalog"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/config"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/library"
	"go.uber.org/zap"
)

// Handle owns the open connection behind both stores.
type Handle struct {
	Driver  string
	Catalog catalog.Store
	Library library.Store

	closeFn func(ctx context.Context) error
}

// Close releases the underlying connection. It is safe to call on a nil handle.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.closeFn == nil {
		return nil
	}
	return h.closeFn(ctx)
}

// Open connects to the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		return openSQLite(cfg, logger)
	case config.StoreDriverMongo:
		return openMongo(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.StoreDriver)
	}
}

func openSQLite(cfg config.AppConfig, logger *zap.Logger) (*Handle, error) {
	db, err := database.OpenSQLite(cfg.SQLitePath, logger, &catalog.Book{}, &library.UserBook{})
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite handle: %w", err)
	}

	catalogStore, err := catalog.NewGormStore(db, ids.NewUUIDProvider())
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	libraryStore, err := library.NewGormStore(db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info("sqlite store ready", zap.String("path", cfg.SQLitePath))
	return &Handle{
		Driver:  config.StoreDriverSQLite,
		Catalog: catalogStore,
		Library: libraryStore,
		closeFn: func(context.Context) error {
			return sqlDB.Close()
		},
	}, nil
}

func openMongo(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Handle, error) {
	client, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoConnectTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: open mongo: %w", err)
	}

	catalogStore, err := catalog.NewMongoStore(ctx, client.Database(cfg.MongoCatalogDatabase), ids.NewUUIDProvider())
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	libraryStore, err := library.NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("mongo store ready",
		zap.String("database", cfg.MongoDatabase),
		zap.String("catalog_database", cfg.MongoCatalogDatabase))
	return &Handle{
		Driver:  config.StoreDriverMongo,
		Catalog: catalogStore,
		Library: libraryStore,
		closeFn: client.Disconnect,
	}, nil
}
