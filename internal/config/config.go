package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Paystack PaystackConfig
	Auth     AuthConfig
	Email    EmailConfig
	Features FeatureFlags

	// ProductAdmin is the remote catalogue API driven by productctl.
	ProductAdmin ServiceConfig

	Log      LogConfig

	// APIURL is the public storefront URL used to build gateway callbacks.
	APIURL string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Store drivers accepted by DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver        string
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	RunMigrations bool
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
	// DedupTTL bounds how long a webhook reference stays claimed.
	DedupTTL time.Duration
}

type KafkaConfig struct {
	Brokers           []string
	OrdersTopic       string
	WebhookRetryTopic string
	ConsumerGroup     string
}

type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type ServiceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type EmailConfig struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	SenderEmail        string
}

type FeatureFlags struct {
	EnableOrderCaching       bool
	EnableOrderEvents        bool
	EnableWebhookDedup       bool
	VerifyWebhookSignature   bool
	EnableEmailNotifications bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (when present) and then the process environment.
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	apiURL := strings.TrimRight(getEnvString("API_URL", "http://localhost:3000"), "/")

	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("SERVER_SHUTDOWN_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(getEnvString("DB_DRIVER", DriverPostgres)),
			Host:          getEnvString("DB_HOST", "localhost"),
			Port:          getEnvInt("DB_PORT", 5432),
			User:          getEnvString("DB_USER", "acme"),
			Password:      getEnvString("DB_PASSWORD", "acme"),
			Name:          getEnvString("DB_NAME", "acme_storefront"),
			SSLMode:       getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:   getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			RunMigrations: getEnvBool("DB_RUN_MIGRATIONS", true),
		},
		Mongo: MongoConfig{
			URI:      getEnvString("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnvString("MONGO_DATABASE", "acme_storefront"),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_ORDER_TTL", 5*time.Minute),
			DedupTTL: getEnvDuration("REDIS_WEBHOOK_DEDUP_TTL", 72*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:       getEnvString("KAFKA_ORDERS_TOPIC", "storefront.orders"),
			WebhookRetryTopic: getEnvString("KAFKA_WEBHOOK_RETRY_TOPIC", "storefront.payment-webhooks.retry"),
			ConsumerGroup:     getEnvString("KAFKA_CONSUMER_GROUP", "storefront"),
		},
		Paystack: PaystackConfig{
			BaseURL:   getEnvString("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey: getEnvString("PAYSTACK_PRIVATE_KEY", ""),
			Timeout:   time.Duration(getEnvInt("PAYSTACK_TIMEOUT", 15)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: getEnvString("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 72*time.Hour),
		},
		Email: EmailConfig{
			AWSAccessKeyID:     getEnvString("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey: getEnvString("AWS_SECRET_ACCESS_KEY", ""),
			AWSRegion:          getEnvString("AWS_REGION", "us-east-1"),
			SenderEmail:        getEnvString("AWS_SENDER_ADDRESS", ""),
		},
		Features: FeatureFlags{
			EnableOrderCaching:       getEnvBool("FEATURE_ORDER_CACHING", true),
			EnableOrderEvents:        getEnvBool("FEATURE_ORDER_EVENTS", true),
			EnableWebhookDedup:       getEnvBool("FEATURE_WEBHOOK_DEDUP", true),
			VerifyWebhookSignature:   getEnvBool("FEATURE_VERIFY_WEBHOOK_SIGNATURE", true),
			EnableEmailNotifications: getEnvBool("FEATURE_EMAIL_NOTIFICATIONS", false),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		APIURL:       apiURL,
		ProductAdmin: ServiceConfig{
			BaseURL: strings.TrimRight(getEnvString("PRODUCT_ADMIN_URL", apiURL), "/"),
			APIKey:  getEnvString("PRODUCT_ADMIN_TOKEN", ""),
			Timeout: getEnvDuration("PRODUCT_ADMIN_TIMEOUT", 30*time.Second),
		},
	}
}

// CheckoutCallbackURL is where the gateway sends the shopper after paying.
func (c *Config) CheckoutCallbackURL() string {
	return c.APIURL + "/me/orders?order_success=true"
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
