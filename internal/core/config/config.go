package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	Redis    RedisConfig    `mapstructure:",squash"`
	Postgres PostgresConfig `mapstructure:",squash"`
	Mongo    MongoConfig    `mapstructure:",squash"`
	Auth     AuthConfig     `mapstructure:",squash"`
	Payment  PaymentConfig  `mapstructure:",squash"`
	Pricing  PricingConfig  `mapstructure:",squash"`
	Checkout CheckoutConfig `mapstructure:",squash"`
	Lookup   LookupConfig   `mapstructure:",squash"`
	Events   EventsConfig   `mapstructure:",squash"`
}

// IsProduction reports whether the service runs with production semantics.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// RedisConfig holds the cache connection details.
type RedisConfig struct {
	// URL follows redis://[:password@]host[:port][/database].
	URL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// PostgresConfig holds the order store connection details.
type PostgresConfig struct {
	// DSN is the Postgres connection string.
	DSN string `mapstructure:"POSTGRES_DSN" required:"true"`
	// MaxConns caps the pool size.
	MaxConns int32 `mapstructure:"POSTGRES_MAX_CONNS" default:"25"`
	// MinConns keeps warm connections open.
	MinConns int32 `mapstructure:"POSTGRES_MIN_CONNS" default:"5"`
}

// MongoConfig holds the catalog store connection details.
type MongoConfig struct {
	// URI of the catalog database. Empty selects the in-memory catalog.
	URI      string `mapstructure:"MONGO_URI"`
	Database string `mapstructure:"MONGO_DATABASE" default:"smartcity"`
}

// AuthConfig selects and configures the identity provider.
type AuthConfig struct {
	// Mode is "firebase" or "dev". Dev tokens are refused in production.
	Mode string `mapstructure:"AUTH_MODE" default:"firebase"`
	// FirebaseProjectID is the Firebase project that issues ID tokens.
	FirebaseProjectID string `mapstructure:"FIREBASE_PROJECT_ID"`
	// FirebaseCredentialsJSON is the service account JSON blob.
	FirebaseCredentialsJSON string `mapstructure:"FIREBASE_CREDENTIALS_JSON"`
}

// PaymentConfig holds the payment confirmation settings.
type PaymentConfig struct {
	// GatewayURL is the base URL of the payment gateway. Empty selects the sandbox gateway.
	GatewayURL string `mapstructure:"PAYMENT_GATEWAY_URL"`
	// APIKey authenticates against the gateway.
	APIKey string `mapstructure:"PAYMENT_API_KEY"`
	// Timeout bounds a single confirmation call.
	Timeout time.Duration `mapstructure:"PAYMENT_TIMEOUT" default:"10s"`
	// SandboxDeclineAbove makes the sandbox decline amounts above this many minor units.
	SandboxDeclineAbove int64 `mapstructure:"PAYMENT_SANDBOX_DECLINE_ABOVE" default:"10000000"`
}

// PricingConfig holds the cart pricing policy. Amounts are minor units, rates are basis points.
type PricingConfig struct {
	ShippingFee       int64 `mapstructure:"PRICING_SHIPPING_FEE" default:"50"`
	FreeShippingAbove int64 `mapstructure:"PRICING_FREE_SHIPPING_ABOVE" default:"50000"`
	TaxBps            int64 `mapstructure:"PRICING_TAX_BPS" default:"1200"`
	DiscountLowBps    int64 `mapstructure:"PRICING_DISCOUNT_LOW_BPS" default:"1000"`
	DiscountHighBps   int64 `mapstructure:"PRICING_DISCOUNT_HIGH_BPS" default:"1500"`
	DiscountHighAbove int64 `mapstructure:"PRICING_DISCOUNT_HIGH_ABOVE" default:"100000"`
}

// CheckoutConfig holds order assembly settings.
type CheckoutConfig struct {
	// DeliveryBusinessDays is the offset used for the delivery estimate.
	DeliveryBusinessDays int `mapstructure:"CHECKOUT_DELIVERY_BUSINESS_DAYS" default:"5"`
	// CartTTL is how long an untouched cart is kept.
	CartTTL time.Duration `mapstructure:"CART_TTL" default:"72h"`
}

// LookupConfig holds the order lookup resolver settings.
type LookupConfig struct {
	CacheTTL          time.Duration `mapstructure:"LOOKUP_CACHE_TTL" default:"10m"`
	RetryBackoff      time.Duration `mapstructure:"LOOKUP_RETRY_BACKOFF" default:"100ms"`
	SyntheticFallback bool          `mapstructure:"LOOKUP_SYNTHETIC_FALLBACK" default:"true"`
}

// EventsConfig holds the outbox relay and broker settings.
type EventsConfig struct {
	// Broker is "kafka", "rabbitmq" or "none".
	Broker         string        `mapstructure:"EVENTS_BROKER" default:"none"`
	KafkaBrokers   []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string        `mapstructure:"KAFKA_TOPIC" default:"smartcity.orders"`
	RabbitURL      string        `mapstructure:"RABBITMQ_URL"`
	RabbitExchange string        `mapstructure:"RABBITMQ_EXCHANGE" default:"smartcity.events"`
	PollInterval   time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL" default:"1s"`
	BatchSize      int           `mapstructure:"OUTBOX_BATCH_SIZE" default:"100"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := validateChoices(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields, binds env keys and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("bind env %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// validateChoices rejects enum-like settings outside their allowed values
// and settings that only make sense together.
func validateChoices(c *AppConfig) error {
	switch c.Auth.Mode {
	case "firebase":
		if c.Auth.FirebaseProjectID == "" {
			return fmt.Errorf("missing required configuration: FIREBASE_PROJECT_ID")
		}
	case "dev":
		if c.IsProduction() {
			return fmt.Errorf("invalid configuration: AUTH_MODE=dev is not allowed in production")
		}
	default:
		return fmt.Errorf("invalid configuration: AUTH_MODE=%q", c.Auth.Mode)
	}

	switch c.Events.Broker {
	case "none":
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			return fmt.Errorf("missing required configuration: KAFKA_BROKERS")
		}
	case "rabbitmq":
		if c.Events.RabbitURL == "" {
			return fmt.Errorf("missing required configuration: RABBITMQ_URL")
		}
	default:
		return fmt.Errorf("invalid configuration: EVENTS_BROKER=%q", c.Events.Broker)
	}

	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
