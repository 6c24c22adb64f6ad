package container

import (
	"context"
	"fmt"

	"relialab/adapters/charts"
	"relialab/adapters/excel"
	"relialab/adapters/llm"
	"relialab/adapters/memory"
	"relialab/adapters/postgres"
	"relialab/app"
	"relialab/internal"
	"relialab/internal/config"
	"relialab/internal/reliability"
	"relialab/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	AnalysisRepo ports.AnalysisRepository

	// Estimation and presentation
	Engine   *reliability.Engine
	Reader   *excel.LifeDataReader
	Renderer *charts.Renderer

	// AI components, nil when no API key is configured
	Summarizer ports.Summarizer

	Service *app.AnalysisService
}

// New creates a container backed by the in-memory repository. Call
// InitWithDatabase to switch to Postgres.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	readerConfig := excel.DefaultReaderConfig()
	readerConfig.MaxObservations = cfg.Analysis.MaxObservations

	c := &Container{
		Config:       cfg,
		Logger:       logger,
		AnalysisRepo: memory.NewAnalysisRepository(),
		Engine:       reliability.NewEngine(logger),
		Reader:       excel.NewLifeDataReader(readerConfig),
		Renderer:     charts.NewRenderer(),
	}

	if cfg.AI.Enabled() {
		if err := c.initAIComponents(); err != nil {
			// Summaries are optional; the rest of the service still works
			logger.Warn("AI components disabled: %v", err)
		}
	}

	c.initService()
	logger.Info("container initialized (in-memory storage, summaries enabled: %t)", c.Summarizer != nil)
	return c, nil
}

// InitWithDatabase switches persistence to Postgres
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.AnalysisRepo = postgres.NewAnalysisRepository(db)
	c.initService()
	c.Logger.Info("container switched to Postgres storage")
	return nil
}

// initAIComponents builds the narrative summarizer over an OpenAI-compatible client
func (c *Container) initAIComponents() error {
	client, err := llm.NewOpenAIClient(c.Config.AI)
	if err != nil {
		return err
	}
	c.Summarizer = llm.NewSummarizer(client, c.Config.AI.SystemContext, c.Logger)
	return nil
}

func (c *Container) initService() {
	c.Service = app.NewAnalysisService(c.Engine, c.AnalysisRepo, c.Summarizer, c.Config.Analysis, c.Logger)
}

// Shutdown releases held resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
