package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"courtside/pkg/client"
	"courtside/pkg/logger"
)

// BreakerConfig carries the tunables for one circuit breaker instance.
// Each protected dependency gets its own independent copy.
type BreakerConfig struct {
	Timeout      time.Duration
	ThresholdPct int
	ResetTimeout time.Duration
	MinRequests  int
	Window       time.Duration
}

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	MongoReadTimeout  time.Duration
	MongoWriteTimeout time.Duration

	Port string

	LockBackend        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	LockTTL            time.Duration
	LockMaxRetries     int
	LockBaseDelay      time.Duration
	PaymentLockRetries int

	MinReservationMinutes   int
	BookingHorizonDays      int
	CancelPolicyWindowHours int
	FullRefundLeadHours     int
	PartialRefundRate       float64
	PaymentMethods          []string

	PaymentGatewayURL    string
	PaymentGatewayAPIKey string

	PaymentBreaker BreakerConfig
	EmailBreaker   BreakerConfig
	EventsBreaker  BreakerConfig

	MailjetAPIKey    string
	MailjetSecretKey string
	MailjetFromEmail string
	MailjetFromName  string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	breaker := BreakerConfig{
		Timeout:      getEnvDuration(EnvBreakerTimeout, DefaultBreakerTimeout),
		ThresholdPct: getEnvNum(EnvBreakerThresholdPct, DefaultBreakerThresholdPct),
		ResetTimeout: getEnvDuration(EnvBreakerResetTimeout, DefaultBreakerResetTimeout),
		MinRequests:  getEnvNum(EnvBreakerMinRequests, DefaultBreakerMinRequests),
		Window:       getEnvDuration(EnvBreakerWindow, DefaultBreakerWindow),
	}

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		MongoReadTimeout:  getEnvDuration(EnvMongoReadTimeout, DefaultMongoReadTimeout),
		MongoWriteTimeout: getEnvDuration(EnvMongoWriteTimeout, DefaultMongoWriteTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		LockBackend:        getEnvStr(EnvLockBackend, DefaultLockBackend),
		RedisAddr:          getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:      getEnvStr(EnvRedisPassword, ""),
		RedisDB:            getEnvNum(EnvRedisDB, 0),
		LockTTL:            getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockMaxRetries:     getEnvNum(EnvLockMaxRetries, DefaultLockMaxRetries),
		LockBaseDelay:      getEnvDuration(EnvLockBaseDelay, DefaultLockBaseDelay),
		PaymentLockRetries: getEnvNum(EnvPaymentLockRetries, DefaultPaymentLockRetries),

		MinReservationMinutes:   getEnvNum(EnvMinReservationMinutes, DefaultMinReservationMinutes),
		BookingHorizonDays:      getEnvNum(EnvBookingHorizonDays, DefaultBookingHorizonDays),
		CancelPolicyWindowHours: getEnvNum(EnvCancelPolicyWindowHours, DefaultCancelPolicyWindowHours),
		FullRefundLeadHours:     getEnvNum(EnvFullRefundLeadHours, DefaultFullRefundLeadHours),
		PartialRefundRate:       getEnvFloat(EnvPartialRefundRate, DefaultPartialRefundRate),
		PaymentMethods:          getEnvList(EnvPaymentMethods, DefaultPaymentMethods),

		PaymentGatewayURL:    getEnvStr(EnvPaymentGatewayURL, DefaultPaymentGatewayURL),
		PaymentGatewayAPIKey: getEnvStr(EnvPaymentGatewayAPIKey, ""),

		PaymentBreaker: breaker,
		EmailBreaker:   breaker,
		EventsBreaker:  breaker,

		MailjetAPIKey:    getEnvStr(EnvMailjetAPIKey, ""),
		MailjetSecretKey: getEnvStr(EnvMailjetSecretKey, ""),
		MailjetFromEmail: getEnvStr(EnvMailjetFromEmail, "no-reply@courtside.local"),
		MailjetFromName:  getEnvStr(EnvMailjetFromName, "Courtside"),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	if cfg.LockBackend != "mongo" && cfg.LockBackend != "redis" {
		errs = append(errs, fmt.Sprintf("LockBackend must be 'mongo' or 'redis', got: %s", cfg.LockBackend))
	}
	if cfg.LockTTL <= 0 {
		errs = append(errs, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}
	if cfg.LockMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("LockMaxRetries cannot be negative, got: %d", cfg.LockMaxRetries))
	}
	if cfg.LockBaseDelay <= 0 {
		errs = append(errs, fmt.Sprintf("LockBaseDelay must be positive, got: %s", cfg.LockBaseDelay))
	}
	if cfg.PaymentLockRetries < 0 {
		errs = append(errs, fmt.Sprintf("PaymentLockRetries cannot be negative, got: %d", cfg.PaymentLockRetries))
	}

	if cfg.MinReservationMinutes <= 0 {
		errs = append(errs, fmt.Sprintf("MinReservationMinutes must be positive, got: %d", cfg.MinReservationMinutes))
	}
	if cfg.BookingHorizonDays <= 0 {
		errs = append(errs, fmt.Sprintf("BookingHorizonDays must be positive, got: %d", cfg.BookingHorizonDays))
	}
	if cfg.CancelPolicyWindowHours < 0 {
		errs = append(errs, fmt.Sprintf("CancelPolicyWindowHours cannot be negative, got: %d", cfg.CancelPolicyWindowHours))
	}
	if cfg.PartialRefundRate < 0 || cfg.PartialRefundRate > 1 {
		errs = append(errs, fmt.Sprintf("PartialRefundRate must be within [0,1], got: %g", cfg.PartialRefundRate))
	}
	if len(cfg.PaymentMethods) == 0 {
		errs = append(errs, "PaymentMethods cannot be empty")
	}

	for name, b := range map[string]BreakerConfig{
		"PaymentBreaker": cfg.PaymentBreaker,
		"EmailBreaker":   cfg.EmailBreaker,
		"EventsBreaker":  cfg.EventsBreaker,
	} {
		if b.ThresholdPct <= 0 || b.ThresholdPct > 100 {
			errs = append(errs, fmt.Sprintf("%s.ThresholdPct must be within (0,100], got: %d", name, b.ThresholdPct))
		}
		if b.Timeout <= 0 || b.ResetTimeout <= 0 || b.Window <= 0 {
			errs = append(errs, fmt.Sprintf("%s timeouts must be positive", name))
		}
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		errs = append(errs, "HTTP server timeouts must be positive")
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"port", cfg.Port,
		"lock_backend", cfg.LockBackend,
		"lock_ttl", cfg.LockTTL,
		"lock_max_retries", cfg.LockMaxRetries,
		"lock_base_delay", cfg.LockBaseDelay,
		"payment_lock_retries", cfg.PaymentLockRetries,
		"min_reservation_minutes", cfg.MinReservationMinutes,
		"booking_horizon_days", cfg.BookingHorizonDays,
		"cancel_policy_window_hours", cfg.CancelPolicyWindowHours,
		"full_refund_lead_hours", cfg.FullRefundLeadHours,
		"partial_refund_rate", cfg.PartialRefundRate,
		"payment_methods", cfg.PaymentMethods,
		"payment_gateway_url", cfg.PaymentGatewayURL,
		"gateway_key_set", cfg.PaymentGatewayAPIKey != "",
		"mailjet_key_set", cfg.MailjetAPIKey != "",
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
