package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvMongoReadTimeout  = "MONGO_READ_TIMEOUT"
	EnvMongoWriteTimeout = "MONGO_WRITE_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvLockBackend        = "LOCK_BACKEND"
	EnvRedisAddr          = "REDIS_ADDR"
	EnvRedisPassword      = "REDIS_PASSWORD"
	EnvRedisDB            = "REDIS_DB"
	EnvLockTTL            = "LOCK_TTL"
	EnvLockMaxRetries     = "LOCK_MAX_RETRIES"
	EnvLockBaseDelay      = "LOCK_BASE_DELAY"
	EnvPaymentLockRetries = "PAYMENT_LOCK_RETRIES"

	EnvMinReservationMinutes   = "MIN_RESERVATION_MINUTES"
	EnvBookingHorizonDays      = "BOOKING_HORIZON_DAYS"
	EnvCancelPolicyWindowHours = "CANCEL_POLICY_WINDOW_HOURS"
	EnvFullRefundLeadHours     = "FULL_REFUND_LEAD_HOURS"
	EnvPartialRefundRate       = "PARTIAL_REFUND_RATE"
	EnvPaymentMethods          = "PAYMENT_METHODS"

	EnvPaymentGatewayURL    = "PAYMENT_GATEWAY_URL"
	EnvPaymentGatewayAPIKey = "PAYMENT_GATEWAY_API_KEY"

	EnvBreakerTimeout      = "BREAKER_TIMEOUT"
	EnvBreakerThresholdPct = "BREAKER_ERROR_THRESHOLD_PCT"
	EnvBreakerResetTimeout = "BREAKER_RESET_TIMEOUT"
	EnvBreakerMinRequests  = "BREAKER_MIN_REQUESTS"
	EnvBreakerWindow       = "BREAKER_WINDOW"

	EnvMailjetAPIKey    = "MAILJET_API_KEY"
	EnvMailjetSecretKey = "MAILJET_SECRET_KEY"
	EnvMailjetFromEmail = "MAILJET_FROM_EMAIL"
	EnvMailjetFromName  = "MAILJET_FROM_NAME"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
