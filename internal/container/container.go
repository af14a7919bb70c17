package container

import (
	"context"
	"fmt"

	"gridwatch/adapters/mgd"
	"gridwatch/adapters/postgres"
	"gridwatch/app"
	"gridwatch/internal"
	"gridwatch/internal/config"
	"gridwatch/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	CustomerRepo ports.CustomerRepository
	ReadingRepo  ports.ReadingRepository
	RunRepo      ports.RunRepository

	// Services
	Detection *app.DetectionService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{
		Config: cfg,
		Logger: internal.NewDefaultLogger(),
	}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.CustomerRepo = postgres.NewCustomerRepository(db)
	c.ReadingRepo = postgres.NewReadingRepository(db)
	c.RunRepo = postgres.NewRunRepository(db)

	c.Detection = app.NewDetectionService(
		c.CustomerRepo, c.ReadingRepo, c.RunRepo,
		c.DetectorFactory(), c.Logger,
	)

	c.Logger.Info("container initialized with database connection")
	return nil
}

// DetectorFactory builds unfitted detectors configured from ModelConfig.
// Each detection run gets its own instance.
func (c *Container) DetectorFactory() func() ports.AnomalyDetector {
	opts := mgd.Options{
		Ridge:   c.Config.Model.Ridge,
		Workers: c.Config.Model.ScoreWorkers,
	}
	return func() ports.AnomalyDetector {
		return mgd.NewWithOptions(opts)
	}
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
