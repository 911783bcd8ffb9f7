package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	Storage StorageConfig
	Queue   QueueConfig
	Render  RenderConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	MetricsPort     int // standalone scrape endpoint for the worker
	PublicBaseURL   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds the job-store Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration. An empty bucket name
// disables uploads; finished renders are then served from the outputs
// directory only.
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Prefix          string
	Region          string
	UseSSL          bool
	PublicBaseURL   string
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// RenderConfig holds everything the pipeline compiler needs: engine paths,
// asset resolution roots, and the per-input tuning previously read from
// ambient environment variables. Compilation is a pure function of the
// payload and this value.
type RenderConfig struct {
	FFmpegPath      string
	OutputDir       string
	WorkDir         string
	AssetsRoot      string
	AssetURLPrefix  string
	DownloadTimeout time.Duration
	InputQueueSize  int
	ProbeSize       string
	AnalyzeDuration string
	ForceCPU        bool
	ForceNVENC      bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.metricsPort", 9100)
	viper.SetDefault("server.publicBaseURL", "")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "")
	viper.SetDefault("storage.prefix", "renders/")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)
	viper.SetDefault("storage.publicBaseURL", "")

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Render defaults
	viper.SetDefault("render.ffmpegPath", "ffmpeg")
	viper.SetDefault("render.outputDir", "/workspace/outputs")
	viper.SetDefault("render.workDir", "/tmp/renderd")
	viper.SetDefault("render.assetsRoot", "/workspace/assets")
	viper.SetDefault("render.assetURLPrefix", "")
	viper.SetDefault("render.downloadTimeout", "300s")
	viper.SetDefault("render.inputQueueSize", 512)
	viper.SetDefault("render.probeSize", "")
	viper.SetDefault("render.analyzeDuration", "")
	viper.SetDefault("render.forceCPU", false)
	viper.SetDefault("render.forceNVENC", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
