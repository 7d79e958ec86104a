// Package bootstrap initializes infrastructure in dependency order:
// logger, then the chat store, then migrations when Postgres is used.
package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"tgnotifier/core/chats"
	coreconfig "tgnotifier/core/config"
	coredatabase "tgnotifier/core/database"
	"tgnotifier/core/logger"
)

// Options control the bootstrap pipeline. The function fields exist for
// tests; zero values select the real implementations.
type Options struct {
	Config        *coreconfig.Config
	MigrationsDir string

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config, string) error
}

// Result exposes the infrastructure built by Run.
type Result struct {
	// DB is nil when the memory driver is selected.
	DB    *sqlx.DB
	Chats *chats.Service
}

// Close releases held resources.
func (r *Result) Close() error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// Run initializes the logger and builds the chat registry over the
// configured store.
func Run(opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	defaults := chats.Defaults{
		MinAmountUSD:  cfg.Notify.MinAmountUSD,
		FarmChangeGap: cfg.Notify.FarmChangeGap,
	}

	if cfg.Database.Driver == coreconfig.DriverMemory {
		return &Result{Chats: chats.NewService(chats.NewMemoryStore(), defaults)}, nil
	}

	dbCfg := databaseConfig(cfg)

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(dbCfg, opts.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{
		DB:    db,
		Chats: chats.NewService(chats.NewPostgresStore(db), defaults),
	}, nil
}

func databaseConfig(cfg *coreconfig.Config) coredatabase.Config {
	return coredatabase.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Name:           cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
	}
}
