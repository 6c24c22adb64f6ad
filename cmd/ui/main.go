package main

import (
	"log"

	"relialab/internal/config"
	"relialab/internal/container"
	"relialab/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Serves only the HTML dashboard, reading analyses from DATABASE_URL
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !appConfig.Database.Enabled() {
		log.Fatal("DATABASE_URL is required: the dashboard only reads stored analyses")
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := appContainer.InitWithDatabase(db); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	dashboard, err := ui.NewDashboard(appContainer.Service, appContainer.Renderer)
	if err != nil {
		log.Fatal("Failed to create dashboard:", err)
	}

	log.Printf("Starting relialab dashboard on http://localhost:%s", appConfig.Server.UIPort)
	log.Fatal(dashboard.Start(":" + appConfig.Server.UIPort))
}
