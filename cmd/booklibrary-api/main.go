package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/config"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/library"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/server"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "booklibrary-api",
		Short: "Personal book library HTTP service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadSources(viper.GetViper(), cfgFile, envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	if err := setupFlags(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) error {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().StringSlice("allowed-origins", defaults.GetStringSlice("http.allowed_origins"), "CORS allowed origins")
	cmd.PersistentFlags().String("store-driver", defaults.GetString("store.driver"), "Storage backend (sqlite, mongodb)")
	cmd.PersistentFlags().String("sqlite-path", defaults.GetString("sqlite.path"), "SQLite database path")
	cmd.PersistentFlags().String("mongo-uri", defaults.GetString("mongo.uri"), "MongoDB connection URI")
	cmd.PersistentFlags().String("mongo-database", defaults.GetString("mongo.database"), "MongoDB database for the user library")
	cmd.PersistentFlags().String("mongo-catalog-database", defaults.GetString("mongo.catalog_database"), "MongoDB database for the catalog")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")

	bindings := []struct{ key, flag string }{
		{"http.address", "http-address"},
		{"http.allowed_origins", "allowed-origins"},
		{"store.driver", "store-driver"},
		{"sqlite.path", "sqlite-path"},
		{"mongo.uri", "mongo-uri"},
		{"mongo.database", "mongo-database"},
		{"mongo.catalog_database", "mongo-catalog-database"},
		{"log.level", "log-level"},
		{"log.format", "log-format"},
	}
	for _, binding := range bindings {
		if err := config.BindFlag(viper.GetViper(), cmd.PersistentFlags(), binding.key, binding.flag); err != nil {
			return err
		}
	}
	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, err := storage.Open(signalCtx, appConfig, logger)
	if err != nil {
		logger.Error("store connection failed", zap.String("driver", appConfig.StoreDriver), zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := handle.Close(closeCtx); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	libraryService, err := library.NewService(library.ServiceConfig{
		Books:      handle.Library,
		Catalog:    handle.Catalog,
		Clock:      time.Now,
		IDProvider: ids.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		LibraryService: libraryService,
		Logger:         logger,
		AllowedOrigins: appConfig.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("store", handle.Driver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
