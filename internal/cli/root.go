// Package cli wires configuration, storage and the HTTP server into the
// tracker command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tracker/internal/aggregate"
	"tracker/internal/config"
	"tracker/internal/logging"
	"tracker/internal/service"
	"tracker/internal/storage"
	"tracker/internal/storage/mongodb"
	"tracker/internal/storage/sqlite"
)

var (
	cfgFile string
	v       = config.New()

	// Version info set by main
	version = "dev"
	commit  = "none"
)

// SetVersion sets the version information
func SetVersion(ver, c string) {
	version = ver
	commit = c
}

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Multi-user project and task tracker",
	Long: `Tracker keeps projects made of weighted tasks. Every task change
recalculates the owning project's progress and status.

Settings come from defaults, an optional YAML file (--config) and
TODO_* environment variables, e.g. TODO_DB_PATH or TODO_AUTH_SECRET.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML)")
	flags.String("db-driver", "", "storage backend: sqlite or mongo")
	flags.String("db", "", "path to sqlite database file")
	flags.String("mongo-uri", "", "MongoDB connection string")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")

	// Bind flags to viper
	_ = v.BindPFlag("db.driver", flags.Lookup("db-driver"))
	_ = v.BindPFlag("db.path", flags.Lookup("db"))
	_ = v.BindPFlag("db.mongo_uri", flags.Lookup("mongo-uri"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
}

// runtime is what every data command needs: settings, a logger and an open store.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	store  storage.Store
}

func setup(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, store: store}, nil
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// service builds the task service with its recalculation pipeline.
func (r *runtime) service() *service.Service {
	engine := aggregate.NewEngine(r.store, r.store)
	dispatcher := aggregate.NewDispatcher(engine, r.logger)
	return service.New(r.store, dispatcher, r.logger)
}

func openStore(ctx context.Context, db config.DB, logger *slog.Logger) (storage.Store, error) {
	switch db.Driver {
	case config.DriverMongo:
		store, err := mongodb.Open(ctx, db.MongoURI, db.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("unable to open mongo database: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.Open(db.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("unable to open database: %w", err)
		}
		return store, nil
	}
}
