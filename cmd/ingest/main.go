package main

import (
	"context"
	"log"
	"os"

	"gridwatch/adapters/excel"
	"gridwatch/adapters/postgres"
	"gridwatch/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// ingest loads a dataset workbook into the database, running migrations
// first so a fresh database works out of the box.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	workbook := os.Getenv("WORKBOOK_FILE")
	if len(os.Args) > 1 {
		workbook = os.Args[1]
	}
	if workbook == "" {
		log.Fatal("Usage: ingest [workbook.xlsx] (or set WORKBOOK_FILE)")
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ds, err := excel.NewWorkbookReader(workbook).Read()
	if err != nil {
		log.Fatalf("Failed to read workbook: %v", err)
	}
	log.Printf("Read %d customers, %d readings, %d weather profiles from %s",
		len(ds.Customers), len(ds.Consumption), len(ds.Weather), workbook)

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := postgres.NewCustomerRepository(db).Save(ctx, ds.Customers); err != nil {
		log.Fatalf("Failed to save customers: %v", err)
	}
	readings := postgres.NewReadingRepository(db)
	if err := readings.SaveConsumption(ctx, ds.Consumption); err != nil {
		log.Fatalf("Failed to save consumption: %v", err)
	}
	if len(ds.Weather) > 0 {
		if err := readings.SaveWeather(ctx, ds.Weather); err != nil {
			log.Fatalf("Failed to save weather: %v", err)
		}
	}
	log.Printf("Ingestion complete")
}
