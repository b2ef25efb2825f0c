package main

import (
	"courtside/internal/breaker"
	"courtside/internal/locking"
	"courtside/internal/notify"
	"courtside/internal/payments/gateway"
	paymenthandler "courtside/internal/payments/handler"
	paymentservice "courtside/internal/payments/service"
	"courtside/internal/reservations/handler"
	"courtside/internal/reservations/repository"
	"courtside/internal/reservations/service"
	"courtside/internal/reservations/validator"
	"courtside/pkg/app"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	"courtside/pkg/kafka"
	kafka_config "courtside/pkg/kafka/config"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	clk := clock.NewSystem()
	sleeper := clock.NewSystemSleeper()

	serverApp := app.NewApplication(cfg)

	locks := initLockManager(cfg, clk, sleeper)
	dispatcher := initDispatcher(cfg, clk, serverApp)
	reservationService, paymentService := initServices(cfg, clk, locks, dispatcher)

	healthHandler := handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log)
	serverApp.SetApp(healthHandler,
		handler.NewReservationHandler(reservationService, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentService, cfg.Log),
	)
	serverApp.Run()
}

func initLockManager(cfg *config.Config, clk clock.Clock, sleeper clock.Sleeper) *locking.Manager {
	var store locking.Store
	switch cfg.LockBackend {
	case "redis":
		cfg.SetRedis()
		store = locking.NewRedisStore(cfg.Client.Redis, clk)
	default:
		store = locking.NewMongoStore(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), clk)
	}

	cfg.Log.Info("Lock manager initialized", "backend", cfg.LockBackend, "ttl", cfg.LockTTL)
	return locking.NewManager(store, clk, sleeper, cfg.Log, cfg.LockMaxRetries, cfg.LockBaseDelay)
}

func initDispatcher(cfg *config.Config, clk clock.Clock, serverApp *app.Application) *notify.Dispatcher {
	var events notify.Publisher
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Invalid Kafka configuration, events disabled", "error", err)
	} else if producer, perr := kafka.NewProducer(kafkaCfg, kafkaCfg.EventsTopic); perr != nil {
		cfg.Log.Warn("Kafka producer unavailable, events disabled", "error", perr)
	} else {
		events = notify.NewKafkaPublisher(producer, ServiceName)
		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}

	var email notify.EmailSender
	if cfg.MailjetAPIKey != "" && cfg.MailjetSecretKey != "" {
		email = notify.NewMailjetSender(cfg.MailjetAPIKey, cfg.MailjetSecretKey, cfg.MailjetFromEmail, cfg.MailjetFromName)
	} else {
		cfg.Log.Warn("Mailjet credentials not set, email notifications disabled")
	}

	return notify.NewDispatcher(
		events,
		email,
		newBreaker("events", cfg.EventsBreaker, clk, cfg),
		newBreaker("email", cfg.EmailBreaker, clk, cfg),
		clk,
		cfg.Log,
	)
}

func initServices(
	cfg *config.Config,
	clk clock.Clock,
	locks *locking.Manager,
	dispatcher *notify.Dispatcher,
) (service.ReservationService, paymentservice.PaymentService) {
	reservationRepo := repository.NewMongoReservationRepository(cfg, clk)
	reservationValidator := validator.NewReservationValidator(cfg.Log, clk, cfg.MinReservationMinutes, cfg.BookingHorizonDays)

	reservationService := service.NewReservationService(
		reservationRepo,
		locks,
		reservationValidator,
		dispatcher,
		clk,
		cfg,
	)

	paymentGateway := gateway.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayAPIKey)
	paymentService := paymentservice.NewPaymentService(
		reservationRepo,
		locks,
		paymentGateway,
		newBreaker("payment-gateway", cfg.PaymentBreaker, clk, cfg),
		dispatcher,
		clk,
		cfg,
	)

	cfg.Log.Info("Reservation services initialized", "database", cfg.MongoDatabaseName)
	return reservationService, paymentService
}

func newBreaker(name string, bc config.BreakerConfig, clk clock.Clock, cfg *config.Config) *breaker.Breaker {
	return breaker.New(name, breaker.Settings{
		Timeout:      bc.Timeout,
		ThresholdPct: bc.ThresholdPct,
		MinRequests:  bc.MinRequests,
		Window:       bc.Window,
		ResetTimeout: bc.ResetTimeout,
	}, clk, cfg.Log)
}
