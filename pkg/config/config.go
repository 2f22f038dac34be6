package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Fetch     FetchConfig
	Discovery DiscoveryConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        int
	WriteTimeout       int
	BodyLimit          int
	RateLimitPerMinute int
	Development        bool
}

// DataConfig points at the reference tables and the local RFP store.
// Store is either "dir" (RFPDir of *.json files) or "sqlite".
type DataConfig struct {
	RFPDir            string
	Store             string
	ProductsCSV       string
	ProductPricingCSV string
	TestPricingCSV    string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type FetchConfig struct {
	Enabled      bool
	TimeoutSec   int
	MaxAttempts  int
	MaxBodyBytes int64
	UserAgent    string
}

type DiscoveryConfig struct {
	MaxSources int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rfp-agent")

	v.SetEnvPrefix("RFP_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Data.Store != "dir" && config.Data.Store != "sqlite" {
		return nil, fmt.Errorf("unknown data.store %q (want dir or sqlite)", config.Data.Store)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.rateLimitPerMinute", 60)
	v.SetDefault("server.development", false)

	v.SetDefault("data.rfpDir", "./data/rfps")
	v.SetDefault("data.store", "dir")
	v.SetDefault("data.productsCSV", "./data/products.csv")
	v.SetDefault("data.productPricingCSV", "./data/product_pricing.csv")
	v.SetDefault("data.testPricingCSV", "./data/test_pricing.csv")

	v.SetDefault("sqlite.path", "./data/rfp.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("fetch.enabled", true)
	v.SetDefault("fetch.timeoutSec", 10)
	v.SetDefault("fetch.maxAttempts", 2)
	v.SetDefault("fetch.maxBodyBytes", 20971520)
	v.SetDefault("fetch.userAgent", "rfp-agent/1.0")

	v.SetDefault("discovery.maxSources", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
