package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// DSN returns the libpq style connection string.
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User +
		" password=" + c.Password + " dbname=" + c.DBName + " sslmode=" + c.SSLMode
}

type AppConfig struct {
	FeedDir   string
	OutputDir string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	RollupTTLSeconds int
}

// EngineConfig holds batch run and inventory policy settings.
type EngineConfig struct {
	Workers              int
	WarehouseWorkers     int
	RetryAttempts        int
	RetryBackoff         time.Duration
	LockTTL              time.Duration
	ForecastHorizonDays  int
	LookbackDays         int
	OrderingCost         float64
	HoldingCostRate      float64
	StockoutSentinelDays float64
}

// StorageConfig points at an S3 compatible bucket.
type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	FeedPrefix   string
	ExportPrefix string
}

// Enabled reports whether object storage is configured.
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockcast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_CONNS", 10)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("APP_FEED_DIR", "./data/feed")
		viper.SetDefault("APP_OUTPUT_DIR", "./data/output")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_ROLLUP_TTL_SECONDS", 300)
		viper.SetDefault("ENGINE_WORKERS", 4)
		viper.SetDefault("ENGINE_WAREHOUSE_WORKERS", 4)
		viper.SetDefault("ENGINE_RETRY_ATTEMPTS", 2)
		viper.SetDefault("ENGINE_RETRY_BACKOFF", "30s")
		viper.SetDefault("ENGINE_LOCK_TTL", "10m")
		viper.SetDefault("ENGINE_FORECAST_HORIZON_DAYS", 90)
		viper.SetDefault("ENGINE_LOOKBACK_DAYS", 365)
		viper.SetDefault("ENGINE_ORDERING_COST", 20.0)
		viper.SetDefault("ENGINE_HOLDING_COST_RATE", 0.25)
		viper.SetDefault("ENGINE_STOCKOUT_SENTINEL_DAYS", 999.0)
		viper.SetDefault("S3_ENDPOINT", "")
		viper.SetDefault("S3_REGION", "us-east-1")
		viper.SetDefault("S3_USE_SSL", true)
		viper.SetDefault("S3_FEED_PREFIX", "feed/")
		viper.SetDefault("S3_EXPORT_PREFIX", "exports/")
		viper.SetDefault("GOOGLE_CREDENTIALS_FILE", "")
		viper.SetDefault("DRIVE_FOLDER_ID", "")
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "console")

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure feed and output directories exist
		ensureDir(viper.GetString("APP_FEED_DIR"))
		ensureDir(viper.GetString("APP_OUTPUT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
				MaxConns: viper.GetInt("DB_MAX_CONNS"),
			},
			App: AppConfig{
				FeedDir:   viper.GetString("APP_FEED_DIR"),
				OutputDir: viper.GetString("APP_OUTPUT_DIR"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				RollupTTLSeconds: viper.GetInt("CACHE_ROLLUP_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				Workers:              viper.GetInt("ENGINE_WORKERS"),
				WarehouseWorkers:     viper.GetInt("ENGINE_WAREHOUSE_WORKERS"),
				RetryAttempts:        viper.GetInt("ENGINE_RETRY_ATTEMPTS"),
				RetryBackoff:         viper.GetDuration("ENGINE_RETRY_BACKOFF"),
				LockTTL:              viper.GetDuration("ENGINE_LOCK_TTL"),
				ForecastHorizonDays:  viper.GetInt("ENGINE_FORECAST_HORIZON_DAYS"),
				LookbackDays:         viper.GetInt("ENGINE_LOOKBACK_DAYS"),
				OrderingCost:         viper.GetFloat64("ENGINE_ORDERING_COST"),
				HoldingCostRate:      viper.GetFloat64("ENGINE_HOLDING_COST_RATE"),
				StockoutSentinelDays: viper.GetFloat64("ENGINE_STOCKOUT_SENTINEL_DAYS"),
			},
			Storage: StorageConfig{
				Endpoint:     viper.GetString("S3_ENDPOINT"),
				AccessKey:    viper.GetString("S3_ACCESS_KEY"),
				SecretKey:    viper.GetString("S3_SECRET_KEY"),
				Bucket:       viper.GetString("S3_BUCKET"),
				Region:       viper.GetString("S3_REGION"),
				UseSSL:       viper.GetBool("S3_USE_SSL"),
				FeedPrefix:   viper.GetString("S3_FEED_PREFIX"),
				ExportPrefix: viper.GetString("S3_EXPORT_PREFIX"),
			},
			Drive: DriveConfig{
				CredentialsFile: viper.GetString("GOOGLE_CREDENTIALS_FILE"),
				FolderID:        viper.GetString("DRIVE_FOLDER_ID"),
			},
			Log: LogConfig{
				Level:  viper.GetString("LOG_LEVEL"),
				Format: viper.GetString("LOG_FORMAT"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
