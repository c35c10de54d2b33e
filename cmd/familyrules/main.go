// Family Rules Core - screen time policy service
//
// This is the main entry point for the family rules service. Devices report
// their usage and learn which state they must be in; administrators force
// temporary overrides; account owners receive periodic status webhooks.
//
// Subcommands (token, account, device, schedule, migrate) provision state
// against the same configuration and database; without one the service runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nerrad567/family-rules-core/internal/api"
	"github.com/nerrad567/family-rules-core/internal/audit"
	"github.com/nerrad567/family-rules-core/internal/directory"
	"github.com/nerrad567/family-rules-core/internal/infrastructure/config"
	"github.com/nerrad567/family-rules-core/internal/infrastructure/database"
	"github.com/nerrad567/family-rules-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/family-rules-core/internal/infrastructure/logging"
	"github.com/nerrad567/family-rules-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/family-rules-core/internal/policy"
	"github.com/nerrad567/family-rules-core/internal/report"
	"github.com/nerrad567/family-rules-core/internal/tokencache"
	"github.com/nerrad567/family-rules-core/internal/webhook"
	"github.com/nerrad567/family-rules-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv names the environment variable overriding defaultConfigPath.
const configEnv = "FAMILYRULES_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && isCommand(os.Args[1]) {
		err = runCommand(ctx, os.Args[1], os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,funlen // composition root: wires every component in order
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting family rules core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", cfg.Database.Path)

	dir := directory.NewSQLiteDirectory(db.DB)
	engine := policy.NewEngine(dir, log)
	creds := tokencache.New(dir, tokencache.Options{
		TTL:      cfg.GetCacheTTL(),
		Capacity: cfg.Policy.CacheCapacity,
		Logger:   log,
	})
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topic_prefix", mqttClient.Topics().Prefix(),
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Every resolved decision goes to the WebSocket feed and, when enabled,
	// to the retained MQTT status topic.
	hub := api.NewHub(cfg.WebSocket, log)
	sinks := []report.StatusSink{hub}
	if mqttClient != nil {
		sinks = append(sinks, mqttStatusSink(mqttClient))
	}

	serviceOpts := report.ServiceOptions{Sinks: sinks, Logger: log}
	if influxClient != nil {
		serviceOpts.Recorder = influxClient
	}
	reports := report.NewService(creds, dir, engine, serviceOpts)
	admin := report.NewAdmin(dir, engine, policy.NewStateSet(cfg.Policy.CustomStates), report.AdminOptions{
		Audit:  auditRepo,
		Sinks:  sinks,
		Logger: log,
	})

	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Reports:     reports,
		Admin:       admin,
		Audit:       auditRepo,
		DB:          db.DB,
		ExternalHub: hub,
		Version:     version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}

	// Background loops are stopped and awaited before the stores they read
	// from are closed.
	background := newWorkers(ctx)
	defer background.Stop()
	background.Go(hub.Run)

	// Webhook pipeline: the scheduler enqueues recently active accounts,
	// the dispatcher drains the queue one account at a time.

	if cfg.Webhook.Enabled {
		queue := webhook.NewQueue()
		scheduler := webhook.NewScheduler(dir, queue, cfg.GetWebhookInterval(), log)
		dispatcherOpts := webhook.DispatcherOptions{
			IdleWait: cfg.GetWebhookIdleWait(),
			Logger:   log,
		}
		if influxClient != nil {
			dispatcherOpts.Recorder = influxClient
		}
		dispatcher := webhook.NewDispatcher(queue, dir, engine,
			webhook.NewHTTPClient(cfg.GetWebhookTimeout(), cfg.Webhook.UserAgent), dispatcherOpts)

		background.Go(scheduler.Run)
		background.Go(dispatcher.Run)
		deps.Queue = queue
		deps.Dispatcher = dispatcher
		log.Info("webhook pipeline started",
			"interval", scheduler.Interval(),
			"idle_wait", cfg.GetWebhookIdleWait(),
		)
	} else {
		log.Info("webhooks disabled")
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, background workers
	// (cancelled and awaited), InfluxDB (flushes pending points), MQTT, database.

	log.Info("family rules core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FAMILYRULES_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// openDatabase opens the SQLite database and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already returning the migration error
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// mqttStatusSink publishes each decision retained on the device's status topic.
func mqttStatusSink(client *mqtt.Client) report.StatusSink {
	return report.StatusSinkFunc(func(_ context.Context, update report.StatusUpdate) error {
		payload, err := json.Marshal(update)
		if err != nil {
			return fmt.Errorf("encoding status update: %w", err)
		}
		return client.PublishDeviceStatus(update.DeviceID, payload)
	})
}

// workers runs background loops on a shared context.
type workers struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newWorkers(parent context.Context) *workers {
	ctx, cancel := context.WithCancel(parent)
	return &workers{ctx: ctx, cancel: cancel}
}

// Go starts loop on its own goroutine.
func (w *workers) Go(loop func(context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		loop(w.ctx)
	}()
}

// Stop cancels every loop and blocks until all have returned.
func (w *workers) Stop() {
	w.cancel()
	w.wg.Wait()
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
