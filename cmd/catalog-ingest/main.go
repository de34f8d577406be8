package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/config"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/googlebooks"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ingest"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catalog-ingest",
		Short: "Seed the book catalog from the Google Books volumes API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadSources(viper.GetViper(), cfgFile, envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context())
		},
		SilenceUsage: true,
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
	cmd.PersistentFlags().String("store-driver", defaults.GetString("store.driver"), "Storage backend (sqlite, mongodb)")
	cmd.PersistentFlags().String("sqlite-path", defaults.GetString("sqlite.path"), "SQLite database path")
	cmd.PersistentFlags().String("mongo-uri", defaults.GetString("mongo.uri"), "MongoDB connection URI")
	cmd.PersistentFlags().String("mongo-catalog-database", defaults.GetString("mongo.catalog_database"), "MongoDB database for the catalog")
	cmd.PersistentFlags().String("base-url", defaults.GetString("ingest.base_url"), "Volumes API base URL")
	cmd.PersistentFlags().String("api-key", defaults.GetString("ingest.api_key"), "Volumes API key")
	cmd.PersistentFlags().StringSlice("queries", defaults.GetStringSlice("ingest.queries"), "Topic queries to ingest")
	cmd.PersistentFlags().Int("max-results", defaults.GetInt("ingest.max_results"), "Volumes requested per query (1-40)")
	cmd.PersistentFlags().Duration("query-delay", defaults.GetDuration("ingest.query_delay"), "Pause after each query before the next one starts")
	cmd.PersistentFlags().Float64("requests-per-second", defaults.GetFloat64("ingest.requests_per_second"), "Volumes API request cap (0 = unlimited)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")

	bindings := []struct{ key, flag string }{
		{"store.driver", "store-driver"},
		{"sqlite.path", "sqlite-path"},
		{"mongo.uri", "mongo-uri"},
		{"mongo.catalog_database", "mongo-catalog-database"},
		{"ingest.base_url", "base-url"},
		{"ingest.api_key", "api-key"},
		{"ingest.queries", "queries"},
		{"ingest.max_results", "max-results"},
		{"ingest.query_delay", "query-delay"},
		{"ingest.requests_per_second", "requests-per-second"},
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

func runIngest(ctx context.Context) error {
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
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := handle.Close(closeCtx); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	job, err := ingest.NewJob(ingest.JobConfig{
		Searcher: googlebooks.NewClient(googlebooks.ClientConfig{
			BaseURL:           appConfig.Ingest.BaseURL,
			APIKey:            appConfig.Ingest.APIKey,
			Timeout:           appConfig.Ingest.RequestTimeout,
			RequestsPerSecond: appConfig.Ingest.RequestsPerSecond,
		}),
		Catalog:    handle.Catalog,
		Queries:    appConfig.Ingest.Queries,
		MaxResults: appConfig.Ingest.MaxResults,
		QueryDelay: appConfig.Ingest.QueryDelay,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	summary, err := job.Run(signalCtx)
	if err != nil {
		logger.Error("catalog ingestion aborted",
			zap.Int("queries_completed", summary.Queries),
			zap.Int("inserted", summary.Inserted),
			zap.Error(err))
		return err
	}
	return nil
}
