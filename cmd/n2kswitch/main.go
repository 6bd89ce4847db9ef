// n2kswitch - NMEA 2000 switching translator
//
// This is the main entry point for the switching bridge. It listens to the
// decoded bus stream on MQTT and translates between Switch Control
// (PGN 127502) and the Command (PGN 126208) form some equipment expects.
//
// Usage:
//
//	n2kswitch                           run the bridge
//	n2kswitch -import-sources file.json load a sources file into SQLite and exit
//	n2kswitch -migrate-down             revert the newest schema migration and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/n2k-switching-core/migrations"

	"github.com/nerrad567/n2k-switching-core/internal/api"
	"github.com/nerrad567/n2k-switching-core/internal/bridges/n2k"
	"github.com/nerrad567/n2k-switching-core/internal/device"
	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/config"
	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/database"
	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/logging"
	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/n2k-switching-core/internal/switching"
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

// startupTimeout bounds the registry load and health checks during startup.
const startupTimeout = 15 * time.Second

func main() {
	importPath := flag.String("import-sources", "", "load a sources JSON file into the SQLite registry and exit")
	migrateDown := flag.Bool("migrate-down", false, "revert the newest schema migration and exit")
	flag.Parse()

	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch {
	case *importPath != "":
		err = runImport(ctx, *importPath)
	case *migrateDown:
		err = runMigrateDown(ctx)
	default:
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting n2kswitch",
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

	// Open the source registry backend
	repo, db, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	registry := device.NewRegistry(repo)
	registry.SetLogger(log.Component("registry"))

	loadCtx, cancelLoad := context.WithTimeout(ctx, startupTimeout)
	refreshErr := registry.RefreshCache(loadCtx)
	cancelLoad()
	if refreshErr != nil {
		return fmt.Errorf("loading source registry: %w", refreshErr)
	}
	log.Info("source registry initialised",
		"backend", cfg.N2K.Registry.Backend,
		"records", registry.Count(),
	)
	go registry.Watch(ctx, cfg.GetRefreshInterval())

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

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

	// The hub exists even with the API disabled so the bridge has a
	// single set of sinks.
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	sinks := []n2k.EventSink{hub}
	if influxClient != nil {
		sinks = append(sinks, &translationSink{writer: influxClient})
	}

	opts := switchingOptions(cfg.N2K)
	bridge, err := n2k.NewBridge(n2k.BridgeOptions{
		MQTTClient:     mqttClient,
		Source:         registry,
		Options:        opts,
		InboundTopic:   cfg.N2K.InboundTopic,
		OutboundTopic:  cfg.N2K.OutboundTopic,
		QoS:            byte(cfg.N2K.QoS), // #nosec G115 -- validated 0..2
		HealthInterval: cfg.GetHealthInterval(),
		Version:        version,
		Sinks:          sinks,
		Logger:         log.Component("bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating N2K bridge: %w", err)
	}
	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting N2K bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping N2K bridge")
		bridge.Stop()
	}()
	if !opts.ConvertSwitchControlToCommand && !opts.ConvertCommandToSwitchControl {
		log.Warn("both conversions disabled, bridge is inert")
	}

	// Start HTTP API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log.Component("api"),
			Registry:    registry,
			Options:     opts,
			Bridge:      bridge,
			MQTT:        mqttClient,
			ExternalHub: hub,
			Version:     version,
		}
		if db != nil {
			deps.Database = db
		}
		if influxClient != nil {
			deps.Audit = influxClient
		}
		apiServer, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// Verify all connections are healthy
	checkCtx, cancelCheck := context.WithTimeout(ctx, startupTimeout)
	checkErr := healthCheck(checkCtx, db, mqttClient, influxClient)
	cancelCheck()
	if checkErr != nil {
		return fmt.Errorf("health check failed: %w", checkErr)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API, bridge, InfluxDB, MQTT, database.

	log.Info("n2kswitch stopped")
	return nil
}

// runImport loads a nested sources file into the SQLite registry.
//
// The running bridge picks the rows up on its next refresh.
func runImport(ctx context.Context, path string) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // best-effort close after import

	count, err := importSources(ctx, device.NewSQLiteRepository(db.DB), path)
	if err != nil {
		return err
	}
	log.Info("sources imported", "path", path, "records", count, "database", cfg.Database.Path)
	return nil
}

// runMigrateDown reverts the newest applied migration.
func runMigrateDown(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // best-effort close

	if err := db.MigrateDown(ctx); err != nil {
		return fmt.Errorf("reverting migration: %w", err)
	}
	schema, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	log.Info("migration reverted", "database", cfg.Database.Path, "schema_version", schema)
	return nil
}

// sourceUpserter is satisfied by *device.SQLiteRepository.
type sourceUpserter interface {
	Upsert(ctx context.Context, records []switching.DeviceRecord) error
}

// importSources parses the file at path and writes every record.
//
// Returns:
//   - int: Number of records written
//   - error: If the file cannot be read or parsed, or a record is rejected
func importSources(ctx context.Context, repo sourceUpserter, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading sources file: %w", err)
	}
	snapshot, err := device.ParseSources(data)
	if err != nil {
		return 0, fmt.Errorf("parsing sources file: %w", err)
	}
	if err := repo.Upsert(ctx, snapshot); err != nil {
		return 0, fmt.Errorf("importing sources: %w", err)
	}
	return len(snapshot), nil
}

// openRepository builds the registry backend selected in config.
// The returned database is nil for the file backend.
func openRepository(ctx context.Context, cfg *config.Config, log *logging.Logger) (device.Repository, *database.DB, error) {
	if cfg.N2K.Registry.Backend == config.RegistryBackendFile {
		log.Info("using file source registry", "path", cfg.N2K.Registry.SourcesFile)
		return device.NewFileRepository(cfg.N2K.Registry.SourcesFile), nil, nil
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	schema, err := db.SchemaVersion(ctx)
	if err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("reading schema version: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path, "schema_version", schema)
	return device.NewSQLiteRepository(db.DB), db, nil
}

// openDatabase opens SQLite and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// switchingOptions maps the config flags onto the router options.
func switchingOptions(cfg config.N2KConfig) switching.Options {
	return switching.Options{
		ConvertSwitchControlToCommand: cfg.ConvertSwitchControlToCommand,
		ConvertCommandToSwitchControl: cfg.ConvertCommandToSwitchControl,
	}
}

// getConfigPath returns the configuration file path.
// Uses N2KSWITCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("N2KSWITCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check (nil with the file registry)
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// translationWriter is satisfied by *influxdb.Client.
type translationWriter interface {
	WriteTranslation(tr influxdb.Translation)
}

// translationSink adapts the InfluxDB client to the bridge's EventSink.
type translationSink struct {
	writer translationWriter
}

// HandleEvent records one dispatch in the audit measurement.
// Ignored messages are not written; they are the bulk of bus traffic.
func (s *translationSink) HandleEvent(ev switching.Event) {
	if ev.Outcome == switching.OutcomeIgnored {
		return
	}
	s.writer.WriteTranslation(translationRecord(ev))
}

// translationRecord converts a dispatch event into an audit record.
func translationRecord(ev switching.Event) influxdb.Translation {
	tr := influxdb.Translation{
		EventID:   ev.ID,
		Direction: string(ev.Direction),
		Outcome:   string(ev.Outcome),
		InputPGN:  ev.InputPGN,
		Error:     ev.Error,
		Timestamp: ev.Timestamp,
	}
	if ev.Output != nil {
		tr.OutputPGN = ev.Output.PGN
		tr.Destination = ev.Output.Dst
	}
	return tr
}
