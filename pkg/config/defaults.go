package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "courtside"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultMongoReadTimeout  = 5 * time.Second
	DefaultMongoWriteTimeout = 5 * time.Second

	DefaultPort = "8080"

	DefaultLockBackend    = "mongo"
	DefaultRedisAddr      = "localhost:6379"
	DefaultLockTTL        = 10 * time.Second
	DefaultLockMaxRetries = 3
	DefaultLockBaseDelay  = 100 * time.Millisecond

	// A busy payment lock fails fast instead of queueing.
	DefaultPaymentLockRetries = 0

	DefaultMinReservationMinutes   = 30
	DefaultBookingHorizonDays      = 90
	DefaultCancelPolicyWindowHours = 2
	DefaultFullRefundLeadHours     = 24
	DefaultPartialRefundRate       = 0.8

	DefaultPaymentGatewayURL = "http://localhost:9090/charge"

	DefaultBreakerTimeout      = 5 * time.Second
	DefaultBreakerThresholdPct = 50
	DefaultBreakerResetTimeout = 30 * time.Second
	DefaultBreakerMinRequests  = 5
	DefaultBreakerWindow       = 60 * time.Second

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

var DefaultPaymentMethods = []string{"card", "wallet", "bank_transfer"}
