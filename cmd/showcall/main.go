// ShowCall Core - Run-of-Show Cue Execution Engine
//
// This is the main entry point for the ShowCall Core application.
// ShowCall is the cueing backbone for live events: a stage manager's
// console and crew displays connect to it to walk a show through its
// cue sheet, with every Go, standby, hold, and note written to a
// durable show log.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/showcall/showcall-core/migrations"

	"github.com/showcall/showcall-core/internal/api"
	"github.com/showcall/showcall-core/internal/infrastructure/config"
	"github.com/showcall/showcall-core/internal/infrastructure/database"
	"github.com/showcall/showcall-core/internal/infrastructure/influxdb"
	"github.com/showcall/showcall-core/internal/infrastructure/logging"
	"github.com/showcall/showcall-core/internal/infrastructure/mqtt"
	"github.com/showcall/showcall-core/internal/session"
	"github.com/showcall/showcall-core/internal/show"
	"github.com/showcall/showcall-core/internal/showlog"
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

// noteSubmitTimeout bounds how long an inbound MQTT note may wait on a
// show's command queue before being dropped.
const noteSubmitTimeout = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ShowCall Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "venue", cfg.Venue.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	repo := show.NewSQLiteRepository(db.DB)
	logRepo := showlog.NewSQLiteAppender(db.DB)

	// The WebSocket hub is created here rather than inside the API server so
	// it can be wired as a session emitter.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	emitters := []session.Emitter{hub}

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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		emitters = append(emitters, &mqttEmitter{
			client: mqttClient,
			qos:    byte(cfg.MQTT.QoS),
			log:    log,
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		emitters = append(emitters, newTelemetryEmitter(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Session registry: one worker per live show
	registry := session.NewRegistry(repo, session.RegistryConfig{
		QueueSize:       cfg.Sessions.QueueSize,
		EvictionGrace:   cfg.GetEvictionGrace(),
		JanitorInterval: cfg.GetJanitorInterval(),
	}, emitters, log)
	go registry.Run(ctx)
	defer registry.Close()
	log.Info("session registry started",
		"queue_size", cfg.Sessions.QueueSize,
		"eviction_grace", cfg.GetEvictionGrace(),
	)

	// Inbound notes from crew hardware land in the show log via the same
	// command queue as HTTP submissions.
	if mqttClient != nil {
		if subErr := subscribeNoteInbox(mqttClient, registry, byte(cfg.MQTT.QoS), log); subErr != nil {
			return fmt.Errorf("subscribing to note inbox: %w", subErr)
		}
		log.Info("note inbox subscribed", "topic", mqtt.Topics{}.AllNoteInboxes())
	}

	// Start API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Repo:        repo,
		ShowLog:     logRepo,
		Sessions:    registry,
		ExternalHub: hub,
		Version:     version,
	})
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
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Session registry
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("ShowCall Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SHOWCALL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SHOWCALL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB clients may be nil when disabled.
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

// notePayload is the JSON body crew hardware publishes to a show's note
// inbox topic.
type notePayload struct {
	CueID *string `json:"cue_id,omitempty"`
	Text  string  `json:"text"`
	Actor string  `json:"actor,omitempty"`
}

// subscribeNoteInbox routes inbound MQTT notes through the show's session so
// they are logged with the same ordering guarantees as HTTP submissions.
func subscribeNoteInbox(client *mqtt.Client, registry *session.Registry, qos byte, log *logging.Logger) error {
	return client.Subscribe(mqtt.Topics{}.AllNoteInboxes(), qos, func(topic string, payload []byte) error {
		showID := mqtt.ShowIDFromNoteTopic(topic)
		if showID == "" {
			return fmt.Errorf("malformed note topic %q", topic)
		}

		var note notePayload
		if err := json.Unmarshal(payload, &note); err != nil {
			return fmt.Errorf("decoding note for show %s: %w", showID, err)
		}
		if note.Text == "" {
			return fmt.Errorf("empty note for show %s", showID)
		}
		if note.Actor == "" {
			note.Actor = "crew"
		}

		ctx, cancel := context.WithTimeout(context.Background(), noteSubmitTimeout)
		defer cancel()

		sess, err := registry.GetOrCreate(ctx, showID)
		if err != nil {
			return fmt.Errorf("resolving show %s: %w", showID, err)
		}
		if _, err := sess.Submit(ctx, session.AddNote{
			CueID: note.CueID,
			Text:  note.Text,
			Actor: note.Actor,
		}); err != nil {
			return fmt.Errorf("logging note for show %s: %w", showID, err)
		}

		log.Debug("note logged from MQTT", "show_id", showID, "actor", note.Actor)
		return nil
	})
}
