package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/phrazzld/taskward/internal/config"
	"github.com/phrazzld/taskward/internal/events"
	"github.com/phrazzld/taskward/internal/expiry"
	"github.com/phrazzld/taskward/internal/notify"
	"github.com/phrazzld/taskward/internal/platform/postgres"
	"github.com/phrazzld/taskward/internal/platform/redisx"
	"github.com/phrazzld/taskward/internal/poller"
	"github.com/phrazzld/taskward/internal/reactor"
	"github.com/phrazzld/taskward/internal/schedule"
	"github.com/phrazzld/taskward/internal/service"
	"github.com/phrazzld/taskward/internal/service/auth"
	"github.com/phrazzld/taskward/internal/store"
)

// redisKeyPrefix namespaces every key the server writes.
const redisKeyPrefix = "taskward:"

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	// Stores
	taskStore store.TaskStore
	userStore store.UserStore

	// Lifecycle engine components
	emitter    *events.InMemoryEmitter
	reactor    *reactor.Reactor
	detector   *expiry.Detector
	dispatcher *notify.Dispatcher
	consumer   *notify.Consumer
	poller     *poller.Poller

	// Service interfaces
	verifier    auth.Verifier
	taskService service.TaskService

	// Background scheduling
	cron *cron.Cron

	// cancelBackground stops the poller and consumer goroutines.
	cancelBackground context.CancelFunc
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Bearer-token verification for everything under /api.
	var err error
	app.verifier, err = auth.NewVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	logger.Info("token verifier initialized", "ops_group", cfg.Auth.OpsGroup)

	// Stores.
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.userStore = postgres.NewPostgresUserStore(db, logger)

	// Redis backs the durable scheduler, the notification queue and the
	// pub/sub channel.
	app.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("redis connection established", "addr", cfg.Redis.Addr)

	scheduleStore := redisx.NewScheduleStore(app.redis, redisKeyPrefix, logger)
	queue := redisx.NewQueue(app.redis, cfg.Queue.Name)
	channel := redisx.NewChannel(app.redis, cfg.Notify.Channel)

	// Notification dispatch: owner contacts resolved from the identity
	// mirror, admin copy to the configured address.
	app.dispatcher = notify.NewDispatcher(
		channel,
		notify.NewUserStoreResolver(app.userStore),
		cfg.Notify.AdminAddress,
		logger,
	)

	// Expiration detection in both modes shares one detector.
	app.detector = expiry.NewDetector(app.taskStore, queue, app.dispatcher, logger)

	// The change reactor keeps schedules consistent with task mutations.
	adapter := schedule.NewAdapter(scheduleStore, logger)
	app.reactor = reactor.New(adapter, reactor.Config{
		ReminderOffset:   time.Duration(cfg.Schedule.ReminderOffsetMinutes) * time.Minute,
		ReminderTarget:   cfg.Schedule.ReminderTarget,
		ExpirationTarget: cfg.Schedule.ExpirationTarget,
	}, logger)

	// Mutations flow to the reactor through the in-process change stream.
	app.emitter = events.NewInMemoryEmitter(logger)
	app.emitter.RegisterHandler(app.reactor)

	app.taskService, err = service.NewTaskService(app.taskStore, app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task service: %w", err)
	}

	// Due schedules fire through the poller; queued notifications drain
	// through the consumer.
	app.poller = poller.New(scheduleStore, app.dispatcher, app.detector, poller.Config{
		ReminderTarget:   cfg.Schedule.ReminderTarget,
		ExpirationTarget: cfg.Schedule.ExpirationTarget,
	}, logger)
	app.consumer = notify.NewConsumer(queue, app.dispatcher, logger)

	if err := app.setupCron(); err != nil {
		return nil, err
	}

	return app, nil
}

// setupCron registers the periodic full-scan expiration sweep.
func (app *application) setupCron() error {
	app.cron = cron.New()

	spec := app.config.Schedule.SweepCron
	if spec == "" {
		app.logger.Warn("sweep cron spec not configured, periodic sweep disabled")
		return nil
	}

	_, err := app.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := app.detector.Sweep(ctx); err != nil {
			app.logger.Error("scheduled expiration sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep cron spec %q: %w", spec, err)
	}

	app.logger.Info("periodic expiration sweep registered", "spec", spec)
	return nil
}

// startBackground launches the schedule poller, the notification consumer and
// the cron entries.
func (app *application) startBackground(ctx context.Context) {
	backgroundCtx, cancel := context.WithCancel(ctx)
	app.cancelBackground = cancel

	interval := time.Duration(app.config.Schedule.PollIntervalSeconds) * time.Second
	go app.poller.Run(backgroundCtx, interval)
	go app.consumer.Run(backgroundCtx)
	app.cron.Start()
}

// cleanup releases application resources in reverse initialization order.
func (app *application) cleanup() {
	if app.cancelBackground != nil {
		app.cancelBackground()
	}

	if app.cron != nil {
		cronCtx := app.cron.Stop()
		<-cronCtx.Done()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
