package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/calyptra/shoprec/pkg/models"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		UserInteractions string `mapstructure:"user_interactions"`
	} `mapstructure:"topics"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig carries every tunable of the recommendation core.
// Action weights are passed explicitly into the strategies so they stay
// pure and testable.
type RecommendationConfig struct {
	ActionWeights          ActionWeightConfig `mapstructure:"action_weights"`
	MinInteractions        int                `mapstructure:"min_interactions"`
	SimilarUserCount       int                `mapstructure:"similar_user_count"`
	RecentInteractionCount int                `mapstructure:"recent_interaction_count"`
	TrendingWindow         time.Duration      `mapstructure:"trending_window"`
	Hybrid                 HybridConfig       `mapstructure:"hybrid"`
	DefaultLimit           int                `mapstructure:"default_limit"`
	CacheTTL               time.Duration      `mapstructure:"cache_ttl"`
}

type ActionWeightConfig struct {
	View     float64 `mapstructure:"view"`
	Search   float64 `mapstructure:"search"`
	Cart     float64 `mapstructure:"cart"`
	Wishlist float64 `mapstructure:"wishlist"`
	Purchase float64 `mapstructure:"purchase"`
}

// Weights converts the flat config block into the model type the
// strategies consume.
func (c ActionWeightConfig) Weights() models.ActionWeights {
	return models.ActionWeights{
		models.ActionView:     c.View,
		models.ActionSearch:   c.Search,
		models.ActionCart:     c.Cart,
		models.ActionWishlist: c.Wishlist,
		models.ActionPurchase: c.Purchase,
	}
}

type HybridConfig struct {
	CollaborativeWeight float64 `mapstructure:"collaborative_weight"`
	ContentWeight       float64 `mapstructure:"content_weight"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topics.user_interactions", "user-interactions")
	viper.SetDefault("kafka.consumer_group", "shoprec-interactions")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommendation defaults
	viper.SetDefault("recommendation.action_weights.view", 1.0)
	viper.SetDefault("recommendation.action_weights.search", 1.5)
	viper.SetDefault("recommendation.action_weights.cart", 3.0)
	viper.SetDefault("recommendation.action_weights.wishlist", 2.0)
	viper.SetDefault("recommendation.action_weights.purchase", 5.0)
	viper.SetDefault("recommendation.min_interactions", 10)
	viper.SetDefault("recommendation.similar_user_count", 5)
	viper.SetDefault("recommendation.recent_interaction_count", 5)
	viper.SetDefault("recommendation.trending_window", "720h")
	viper.SetDefault("recommendation.hybrid.collaborative_weight", 0.6)
	viper.SetDefault("recommendation.hybrid.content_weight", 0.4)
	viper.SetDefault("recommendation.default_limit", 10)
	viper.SetDefault("recommendation.cache_ttl", "15m")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
