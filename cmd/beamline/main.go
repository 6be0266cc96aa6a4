// Beamline Core - device instantiation service
//
// beamline reads the beamline's device list, builds every declared device
// concurrently (devices may reference each other), records the result in
// the device inventory, optionally applies settings and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/beamline-core/migrations"

	"github.com/nerrad567/beamline-core/internal/device"
	"github.com/nerrad567/beamline-core/internal/devicelist"
	"github.com/nerrad567/beamline-core/internal/devinit"
	"github.com/nerrad567/beamline-core/internal/drivers"
	"github.com/nerrad567/beamline-core/internal/infrastructure/config"
	"github.com/nerrad567/beamline-core/internal/infrastructure/database"
	"github.com/nerrad567/beamline-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/beamline-core/internal/infrastructure/logging"
	"github.com/nerrad567/beamline-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting beamline core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("beamline", cfg.Beamline.ID)
	log.Info("configuration loaded", "path", configPath)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("registry"))
	if err := registry.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading device inventory: %w", err)
	}

	observers := []devinit.Observer{device.NewInventory(registry, log.Component("inventory"))}

	var transport drivers.Transport
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		transport = mqttClient
		observers = append(observers, newEventPublisher(mqttClient, cfg.Beamline.ID, log.Component("events")))
	} else {
		log.Warn("MQTT disabled, device commands are logged only")
		transport = newDryRunTransport(log.Component("dry-run"))
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		observers = append(observers, newMetricsRecorder(influxClient, cfg.Beamline.ID))
	}

	table, err := devicelist.Load(cfg.Devices.ListFile, cfg.Devices.Section)
	if err != nil {
		return fmt.Errorf("loading device list: %w", err)
	}
	log.Info("device list loaded", "path", cfg.Devices.ListFile, "section", cfg.Devices.Section, "devices", len(table))

	types := devinit.NewTypeRegistry()
	if err := drivers.Register(types, transport); err != nil {
		return fmt.Errorf("registering drivers: %w", err)
	}

	opts := []devinit.Option{
		devinit.WithWaitPolicy(devinit.WaitPolicy{
			Attempts: cfg.Devices.WaitAttempts,
			Interval: cfg.Devices.WaitInterval(),
		}),
		devinit.WithCycleDetection(cfg.Devices.DetectCycles),
		devinit.WithLogger(log.Component("devinit")),
	}
	for _, o := range observers {
		opts = append(opts, devinit.WithObserver(o))
	}

	// A failed pass still returns the devices it completed; they are merged
	// so the deferred Close releases them.
	ns, runErr := devinit.NewEngine(types, opts...).Run(ctx, table, nil)
	mergeErr := registry.Merge(ns)
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			log.Error("error closing devices", "error", closeErr)
		}
	}()
	if runErr != nil {
		return fmt.Errorf("instantiating devices: %w", runErr)
	}
	if mergeErr != nil {
		return fmt.Errorf("registering devices: %w", mergeErr)
	}

	if cfg.Devices.SettingsFile != "" {
		settings, err := device.LoadSettings(cfg.Devices.SettingsFile)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if err := device.ApplySettings(ctx, registry.Namespace(), settings, cfg.Devices.SettingsTimeoutDuration()); err != nil {
			return fmt.Errorf("applying settings: %w", err)
		}
		log.Info("settings applied", "path", cfg.Devices.SettingsFile, "devices", len(settings))
	}

	stats := registry.GetStats()
	log.Info("beamline core finished", "devices", stats.Live, "inventory", stats.Recorded)
	return nil
}
