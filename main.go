package main

import (
	"context"
	"log"

	"relialab/internal/config"
	"relialab/internal/container"
	"relialab/internal/errors"
	"relialab/internal/migration"
	"relialab/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to Postgres and applies migrations
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)
	db.SetConnMaxLifetime(appConfig.Database.ConnMaxLifetime)

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if appConfig.Database.Enabled() {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := appContainer.InitWithDatabase(db); err != nil {
			log.Fatalf("Failed to initialize container: %v", err)
		}
	} else {
		log.Println("DATABASE_URL not set, analyses are kept in memory")
	}

	dashboard, err := ui.NewDashboard(appContainer.Service, appContainer.Renderer)
	if err != nil {
		log.Fatalf("Failed to create dashboard: %v", err)
	}
	go func() {
		if err := dashboard.Start(":" + appConfig.Server.UIPort); err != nil {
			log.Printf("Dashboard stopped: %v", err)
		}
	}()

	server := ui.NewServer(appContainer.Service, appContainer.Reader, appConfig.Server.GinMode)
	log.Printf("Starting relialab API on port %s (dashboard on %s)", appConfig.Server.Port, appConfig.Server.UIPort)
	log.Fatal(server.Run(":" + appConfig.Server.Port))
}
