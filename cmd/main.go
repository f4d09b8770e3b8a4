package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	createAppointmentHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/create_appointment"
	createRecurringHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/create_recurring_appointment"
	getAppointmentHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_appointment"
	getAvailableSlotsHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_available_slots"
	getBusinessAppointmentsHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_business_appointments"
	getBusinessRecurringHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_business_recurring"
	getCustomerAppointmentsHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_customer_appointments"
	getRecurringHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_recurring_appointment"
	healthHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/health"
	materializeRecurringHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/materialize_recurring"
	stripeWebhookHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/stripe_webhook"
	updateAppointmentStatusHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/update_appointment_status"
	updateRecurringStatusHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/update_recurring_status"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/config"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/lock"
	appointmentRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/memory"
	recurringRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/recurring"
	catalogServiceClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/notifications"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/payment"
	appointmentsService "github.com/m04kA/SMC-SchedulingService/internal/service/appointments"
	notificationsService "github.com/m04kA/SMC-SchedulingService/internal/service/notifications"
	recurrenceService "github.com/m04kA/SMC-SchedulingService/internal/service/recurrence"
	createAppointmentUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/create_appointment"
	getAvailableSlotsUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-SchedulingService/internal/worker/materializer"
	"github.com/m04kA/SMC-SchedulingService/pkg/clock"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
	"github.com/m04kA/SMC-SchedulingService/pkg/metrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/tracing"
	"github.com/m04kA/SMC-SchedulingService/pkg/txmanager"
)

// Хранилища для обоих драйверов (postgres и memory) должны удовлетворять всем потребителям
type (
	appointmentStore interface {
		createAppointmentUC.AppointmentRepository
		getAvailableSlotsUC.AppointmentRepository
		appointmentsService.AppointmentRepository
		recurrenceService.AppointmentRepository
	}

	seriesStore interface {
		recurrenceService.SeriesRepository
	}

	txManager interface {
		Do(ctx context.Context, fn func(ctx context.Context) error) error
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}

	paymentProvider interface {
		createAppointmentUC.PaymentProvider
		stripeWebhookHandler.WebhookParser
	}

	notifier interface {
		notificationsService.Notifier
		Close() error
	}
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-SchedulingService...")
	log.Info("Configuration loaded from config.toml")

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		log.Fatal("Failed to load timezone %q: %v", cfg.Scheduling.Timezone, err)
	}
	timeProvider := clock.NewReal(loc)

	// Инициализируем метрики (если включены). Методы *metrics.Metrics безопасны для nil.
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Трейсинг
	shutdownTracing, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal("Failed to set up tracing: %v", err)
	}
	if cfg.Tracing.Enabled {
		log.Info("Tracing enabled, exporting to %s", cfg.Tracing.OTLPEndpoint)
	}

	healthChecks := make(map[string]healthHandler.Checker)

	// Инициализируем хранилище
	var (
		appointments appointmentStore
		series       seriesStore
		txMgr        txManager
		db           *sql.DB
	)

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		appointments = memory.NewAppointmentRepository()
		series = memory.NewRecurringRepository()
		txMgr = txmanager.Noop{}
		log.Warn("Using in-memory storage: data is lost on restart")

	default:
		db, err = sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}

		// Настраиваем connection pool
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

		// Проверяем соединение
		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database: %v", err)
		}
		log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

		wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
		if cfg.Metrics.Enabled {
			log.Info("Database metrics collection started")
		}

		appointments = appointmentRepo.NewRepository(wrappedDB)
		series = recurringRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
		healthChecks["postgres"] = wrappedDB
	}

	// Блокировка ресурс+дата: redis для нескольких инстансов, иначе в процессе
	var (
		locker      createAppointmentUC.Locker
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to ping redis at %s: %v", cfg.Redis.Addr, err)
		}
		locker = lock.NewRedis(
			redisClient,
			cfg.Redis.LockPrefix,
			time.Duration(cfg.Redis.LockTTL)*time.Second,
			time.Duration(cfg.Redis.LockWait)*time.Second,
			log,
		)
		healthChecks["redis"] = healthHandler.CheckerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info("Using redis locks (addr=%s)", cfg.Redis.Addr)
	} else {
		locker = lock.WithTimeout(lock.NewLocal(), time.Duration(cfg.Scheduling.LockTimeout)*time.Second)
		log.Warn("Redis is not configured, using in-process locks: run a single instance only")
	}

	// Уведомления
	var eventNotifier notifier
	if brokers := notifications.SplitBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		eventNotifier = notifications.NewKafka(brokers, cfg.Kafka.Topic, time.Duration(cfg.Kafka.WriteTimeout)*time.Second, log)
		log.Info("Notifications published to kafka topic %s (brokers=%v)", cfg.Kafka.Topic, brokers)
	} else {
		eventNotifier = notifications.NewLogNotifier(log)
		log.Warn("Kafka is not configured, notifications are only logged")
	}
	dispatcher := notificationsService.NewDispatcher(eventNotifier, time.Duration(cfg.Kafka.NotifyTimeout)*time.Second, log)

	// Платежи
	var payments paymentProvider
	if cfg.Stripe.Enabled() {
		payments = payment.NewStripe(payment.StripeConfig{
			SecretKey:        cfg.Stripe.SecretKey,
			WebhookSecret:    cfg.Stripe.WebhookSecret,
			WebhookTolerance: time.Duration(cfg.Stripe.WebhookTolerance) * time.Second,
			Currency:         cfg.Stripe.Currency,
			SuccessURL:       cfg.Stripe.SuccessURL,
			CancelURL:        cfg.Stripe.CancelURL,
		}, log)
		log.Info("Stripe payments enabled (currency=%s)", cfg.Stripe.Currency)
	} else {
		payments = payment.NewNoop(log)
		log.Warn("Stripe is not configured, paid appointments stay pending until confirmed by business")
	}

	// Инициализируем интеграционных клиентов
	catalogClient := catalogServiceClient.NewClient(
		cfg.CatalogService.URL,
		time.Duration(cfg.CatalogService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (CatalogService=%s timeout=%ds)",
		cfg.CatalogService.URL, cfg.CatalogService.Timeout)

	// Инициализируем use cases
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		appointments,
		catalogClient,
		timeProvider,
		cfg.Scheduling.MaxAdvanceDays,
		log,
	)

	createAppointmentUseCase := createAppointmentUC.NewUseCase(
		appointments,
		catalogClient,
		locker,
		txMgr,
		payments,
		dispatcher,
		metricsCollector,
		timeProvider,
		cfg.Scheduling.MaxAdvanceDays,
		log,
	)

	// Инициализируем сервисы
	appointmentSvc := appointmentsService.NewService(
		appointments,
		txMgr,
		dispatcher,
		metricsCollector,
		timeProvider,
		log,
	)

	recurrenceSvc := recurrenceService.NewService(
		series,
		appointments,
		catalogClient,
		createAppointmentUseCase,
		appointmentSvc,
		locker,
		dispatcher,
		metricsCollector,
		timeProvider,
		cfg.Recurrence.HorizonDays,
		cfg.Recurrence.MaxOccurrencesPerRun,
		log,
	)

	// Фоновая генерация записей по активным сериям
	worker, err := materializer.New(
		recurrenceSvc,
		cfg.Recurrence.MaintenanceSchedule,
		loc,
		time.Duration(cfg.Recurrence.RunTimeout)*time.Second,
		log,
	)
	if err != nil {
		log.Fatal("Failed to create materializer: %v", err)
	}
	worker.Start(context.Background())

	// Инициализируем handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	createAppointment := createAppointmentHandler.NewHandler(createAppointmentUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentSvc, log)
	updateAppointmentStatus := updateAppointmentStatusHandler.NewHandler(appointmentSvc, log)
	getBusinessAppointments := getBusinessAppointmentsHandler.NewHandler(appointmentSvc, log)
	getCustomerAppointments := getCustomerAppointmentsHandler.NewHandler(appointmentSvc, log)
	createRecurring := createRecurringHandler.NewHandler(recurrenceSvc, log)
	getRecurring := getRecurringHandler.NewHandler(recurrenceSvc, log)
	updateRecurringStatus := updateRecurringStatusHandler.NewHandler(recurrenceSvc, log)
	materializeRecurring := materializeRecurringHandler.NewHandler(recurrenceSvc, log)
	getBusinessRecurring := getBusinessRecurringHandler.NewHandler(recurrenceSvc, log)
	stripeWebhook := stripeWebhookHandler.NewHandler(payments, appointmentSvc, log)
	health := healthHandler.NewHandler(healthChecks, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/healthz", health.Handle).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты услуги на дату
	api.HandleFunc("/services/{serviceId}/available-slots", getAvailableSlots.Handle).Methods(http.MethodGet)

	// Webhook Stripe (проверяется подписью)
	api.HandleFunc("/payments/stripe/webhook", stripeWebhook.Handle).Methods(http.MethodPost)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID и X-User-Role)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Записи ---
	protected.HandleFunc("/appointments", createAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}/status", updateAppointmentStatus.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/businesses/{businessId}/appointments", getBusinessAppointments.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/customers/{customerId}/appointments", getCustomerAppointments.Handle).Methods(http.MethodGet)

	// --- Повторяющиеся записи ---
	protected.HandleFunc("/recurring-appointments", createRecurring.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/recurring-appointments/{seriesId}", getRecurring.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/recurring-appointments/{seriesId}/status", updateRecurringStatus.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/recurring-appointments/{seriesId}/materialize", materializeRecurring.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/businesses/{businessId}/recurring-appointments", getBusinessRecurring.Handle).Methods(http.MethodGet)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, cfg.Tracing.ServiceName),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	// Прерываем генерацию серий: созданные записи остаются
	if err := worker.Stop(shutdownCtx); err != nil {
		log.Error("Materializer did not stop in time: %v", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Дожидаемся отправки уже поставленных уведомлений
	dispatcher.Wait()
	if err := eventNotifier.Close(); err != nil {
		log.Error("Failed to close notifier: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close redis client: %v", err)
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Failed to flush traces: %v", err)
	}

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database: %v", err)
		}
	}

	log.Info("Server stopped gracefully")
}
