package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix                   = "BOOKLIBRARY"
	defaultHTTPAddress          = "0.0.0.0:8000"
	defaultStoreDriver          = StoreDriverSQLite
	defaultSQLitePath           = "booklibrary.db"
	defaultMongoDatabase        = "userbooks"
	defaultMongoCatalogDatabase = "initialbooksdata"
	defaultMongoConnectTimeout  = 10 * time.Second
	defaultLogLevel             = "info"
	defaultLogFormat            = "json"
	defaultIngestBaseURL        = "https://www.googleapis.com"
	defaultIngestMaxResults     = 40
	defaultIngestQueryDelay     = time.Second
	defaultIngestRequestTimeout = 30 * time.Second

	// maxIngestResults is the page size ceiling of the volumes API.
	maxIngestResults = 40
)

const (
	// StoreDriverSQLite persists both collections in one SQLite file through GORM.
	StoreDriverSQLite = "sqlite"
	// StoreDriverMongo persists the collections in MongoDB databases.
	StoreDriverMongo = "mongodb"
)

// DefaultIngestQueries lists the topic queries used to seed the catalog.
var DefaultIngestQueries = []string{
	"harry potter",
	"book",
	"novel",
	"literature",
	"bestseller",
	"classic",
	"award winning",
	"popular",
	"top rated",
	"fiction bestseller",
	"science technology",
	"history world",
	"business success",
	"self improvement",
	"mystery thriller",
	"romance love",
	"fantasy adventure",
	"biography inspiring",
	"classic literature",
}

// AppConfig captures runtime configuration shared by the API server and the ingestion job.
type AppConfig struct {
	HTTPAddress          string
	AllowedOrigins       []string
	StoreDriver          string
	SQLitePath           string
	MongoURI             string
	MongoDatabase        string
	MongoCatalogDatabase string
	MongoConnectTimeout  time.Duration
	LogLevel             string
	LogFormat            string
	Ingest               IngestConfig
}

// IngestConfig describes the catalog ingestion job.
type IngestConfig struct {
	BaseURL        string
	APIKey         string
	Queries        []string
	MaxResults     int
	QueryDelay     time.Duration
	RequestTimeout time.Duration

	// RequestsPerSecond caps volume API calls; zero means unlimited.
	RequestsPerSecond float64
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("store.driver", defaultStoreDriver)
	configViper.SetDefault("sqlite.path", defaultSQLitePath)
	configViper.SetDefault("mongo.uri", "")
	configViper.SetDefault("mongo.database", defaultMongoDatabase)
	configViper.SetDefault("mongo.catalog_database", defaultMongoCatalogDatabase)
	configViper.SetDefault("mongo.connect_timeout", defaultMongoConnectTimeout)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("ingest.base_url", defaultIngestBaseURL)
	configViper.SetDefault("ingest.api_key", "")
	configViper.SetDefault("ingest.queries", DefaultIngestQueries)
	configViper.SetDefault("ingest.max_results", defaultIngestMaxResults)
	configViper.SetDefault("ingest.query_delay", defaultIngestQueryDelay)
	configViper.SetDefault("ingest.request_timeout", defaultIngestRequestTimeout)
	configViper.SetDefault("ingest.requests_per_second", 0.0)
}

// LoadDotEnv populates the process environment from .env files when they exist.
// Variables already present in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		AllowedOrigins:       stringList(configViper.Get("http.allowed_origins")),
		StoreDriver:          strings.ToLower(strings.TrimSpace(configViper.GetString("store.driver"))),
		SQLitePath:           configViper.GetString("sqlite.path"),
		MongoURI:             configViper.GetString("mongo.uri"),
		MongoDatabase:        configViper.GetString("mongo.database"),
		MongoCatalogDatabase: configViper.GetString("mongo.catalog_database"),
		MongoConnectTimeout:  configViper.GetDuration("mongo.connect_timeout"),
		LogLevel:             configViper.GetString("log.level"),
		LogFormat:            configViper.GetString("log.format"),
		Ingest: IngestConfig{
			BaseURL:           strings.TrimRight(configViper.GetString("ingest.base_url"), "/"),
			APIKey:            configViper.GetString("ingest.api_key"),
			Queries:           stringList(configViper.Get("ingest.queries")),
			MaxResults:        configViper.GetInt("ingest.max_results"),
			QueryDelay:        configViper.GetDuration("ingest.query_delay"),
			RequestTimeout:    configViper.GetDuration("ingest.request_timeout"),
			RequestsPerSecond: configViper.GetFloat64("ingest.requests_per_second"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.StoreDriver {
	case StoreDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite.path is required")
		}
	case StoreDriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("mongo.uri is required")
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			return fmt.Errorf("mongo.database is required")
		}
		if strings.TrimSpace(c.MongoCatalogDatabase) == "" {
			return fmt.Errorf("mongo.catalog_database is required")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported", c.StoreDriver)
	}
	return c.Ingest.validate()
}

func (c IngestConfig) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("ingest.base_url is required")
	}
	if len(c.Queries) == 0 {
		return fmt.Errorf("ingest.queries must not be empty")
	}
	if c.MaxResults < 1 || c.MaxResults > maxIngestResults {
		return fmt.Errorf("ingest.max_results must be between 1 and %d", maxIngestResults)
	}
	if c.QueryDelay < 0 {
		return fmt.Errorf("ingest.query_delay must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("ingest.requests_per_second must not be negative")
	}
	return nil
}

// stringList accepts list values from config files and comma-separated values from the environment.
func stringList(raw any) []string {
	var values []string
	switch typed := raw.(type) {
	case string:
		values = strings.Split(typed, ",")
	case []string:
		values = typed
	case []any:
		for _, item := range typed {
			values = append(values, fmt.Sprint(item))
		}
	}
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
