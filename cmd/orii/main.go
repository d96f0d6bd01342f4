// Orii Core - Device Orchestration Hub
//
// This is the main entry point for the Orii Core application. Orii runs a
// household's devices through a single conversation loop: device plugins
// raise triggers, the scheduler batches them to the decision service, and
// the reconciler applies whatever actions come back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orii-home/orii-core/internal/api"
	"github.com/orii-home/orii-core/internal/automation"
	"github.com/orii-home/orii-core/internal/decision"
	"github.com/orii-home/orii-core/internal/device"
	"github.com/orii-home/orii-core/internal/devices"
	"github.com/orii-home/orii-core/internal/infrastructure/config"
	"github.com/orii-home/orii-core/internal/infrastructure/database"
	"github.com/orii-home/orii-core/internal/infrastructure/logging"
	"github.com/orii-home/orii-core/internal/infrastructure/mqtt"
	"github.com/orii-home/orii-core/internal/store"
	"github.com/orii-home/orii-core/internal/telemetry"
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

// doorEventBuffer bounds pending door edges between the MQTT handler and
// the door plugin.
const doorEventBuffer = 8

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
	log.Info("starting Orii Core",
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
	log.Info("configuration loaded", "path", configPath, "hub", cfg.Hub.Name)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the parameter store database
	db, err := database.Open(database.Config{
		Path:        cfg.Store.Path,
		WALMode:     cfg.Store.WALMode,
		BusyTimeout: cfg.Store.BusyTimeout,
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
	log.Info("database connected", "path", cfg.Store.Path)

	paramStore, err := store.Open(db, time.Duration(cfg.Store.OpTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("opening param store: %w", err)
	}
	log.Info("param store ready")

	// Connect to the MQTT broker (optional)
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
		mqttClient.SetOnDisconnect(func(discErr error) {
			log.Warn("MQTT disconnected", "error", discErr)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled, announcer and inbox devices will be skipped")
	}

	// Connect to the telemetry backend (optional)
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting to telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(writeErr error) {
			log.Error("telemetry write error", "error", writeErr)
		})
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled, history queries will return 404")
	}

	// Decision service client
	decider, err := decision.NewClient(cfg.Decision, log)
	if err != nil {
		return fmt.Errorf("creating decision client: %w", err)
	}
	if decider.Enabled() {
		log.Info("decision service enabled", "model", cfg.Decision.Model)
	} else {
		log.Info("decision service in stub mode, no actions will be generated")
	}

	// WebSocket hub, shared between the API server and the orchestrator
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	broadcaster := &stateFanout{hub: hub, mqtt: mqttClient, log: log}

	// Device registry and plugin factories
	registry := device.NewRegistry(paramStore, cfg.Profile, device.WithLogger(log))

	deps := devices.Deps{
		Sampler: nil, // synthetic sampler until real hardware is wired
		Logger:  log,
	}
	if mqttClient != nil {
		deps.MQTT = &mqttDeviceAdapter{client: mqttClient}
		deps.DoorEvents = doorEvents(mqttClient, log)
	}
	factories := devices.Factories(cfg, deps)

	// Reconciler and orchestrator
	var recorder automation.Recorder
	if telemetryClient != nil {
		recorder = telemetryClient
	}
	reconciler := automation.NewReconciler(registry, paramStore, decider, broadcaster, recorder, log)
	orchestrator := automation.NewOrchestrator(registry, decider, reconciler, broadcaster, cfg.TickInterval(), log)

	if err := orchestrator.Start(ctx, factories); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}
	defer func() {
		log.Info("stopping orchestrator")
		orchestrator.Stop()
	}()

	// HTTP API server
	var historySource api.HistorySource
	if telemetryClient != nil {
		historySource = telemetryClient
	}
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Engine:      orchestrator,
		History:     historySource,
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
	log.Info("API server listening", "host", cfg.API.Host, "port", cfg.API.Port)

	if err := healthCheck(ctx, db, mqttClient, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, orchestrator, telemetry, MQTT, database.

	log.Info("Orii Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses the ORII_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ORII_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy. The MQTT
// and telemetry clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// doorEvents subscribes to the door contact topic and converts messages to
// open/closed edges. The payload is "open"/"closed" or a bare boolean.
// A full buffer drops the oldest pending edge; the door plugin only cares
// about the latest position anyway.
func doorEvents(client *mqtt.Client, log *logging.Logger) <-chan bool {
	events := make(chan bool, doorEventBuffer)
	topic := mqtt.Topics{}.DoorEvents()

	err := client.Subscribe(topic, byte(1), func(_ string, payload []byte) error {
		open, ok := parseDoorPayload(payload)
		if !ok {
			log.Warn("unparseable door payload dropped", "payload", string(payload))
			return nil
		}
		select {
		case events <- open:
		default:
			select {
			case <-events:
			default:
			}
			events <- open
		}
		return nil
	})
	if err != nil {
		log.Warn("door topic subscription failed, door device will stay closed", "error", err)
	}

	return events
}

// parseDoorPayload interprets a door contact message.
func parseDoorPayload(payload []byte) (open, ok bool) {
	switch string(bytes.ToLower(bytes.TrimSpace(payload))) {
	case "open", "true", "1":
		return true, true
	case "closed", "false", "0":
		return false, true
	}

	var b bool
	if err := json.Unmarshal(payload, &b); err == nil {
		return b, true
	}
	return false, false
}

// mqttDeviceAdapter adapts the infrastructure MQTT client to the device
// plugins' Publisher and Subscriber interfaces. The only difference is the
// handler parameter type: plugins declare a plain func where the client
// uses its named MessageHandler type.
type mqttDeviceAdapter struct {
	client *mqtt.Client
}

// Publish implements devices.Publisher.
func (a *mqttDeviceAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements devices.Subscriber.
func (a *mqttDeviceAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, handler)
}

// Unsubscribe implements devices.Subscriber.
func (a *mqttDeviceAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// stateFanout relays orchestrator broadcasts to the WebSocket hub and
// mirrors applied device state onto the MQTT bus, where external
// dashboards can follow it.
type stateFanout struct {
	hub  *api.Hub
	mqtt *mqtt.Client
	log  *logging.Logger
}

func (f *stateFanout) Broadcast(channel string, payload any) {
	f.hub.Broadcast(channel, payload)

	if f.mqtt == nil || channel != api.ChannelDeviceState {
		return
	}
	event, ok := payload.(map[string]any)
	if !ok {
		return
	}
	id, ok := event["id"].(int)
	if !ok {
		return
	}
	data, err := json.Marshal(event["param"])
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.DeviceState(id)
	if err := f.mqtt.Publish(topic, data, byte(1), true); err != nil {
		f.log.Warn("device state publish failed", "topic", topic, "error", err)
	}
}
