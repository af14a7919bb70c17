package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"gridwatch/adapters/excel"
	"gridwatch/adapters/postgres"
	"gridwatch/internal/testkit"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// datagen produces a synthetic labeled dataset, either as an .xlsx workbook
// or loaded straight into the database.
func main() {
	var (
		seed       = flag.Int64("seed", 42, "random seed")
		nCustomers = flag.Int("customers", 1000, "number of customers")
		months     = flag.Int("months", 24, "months of consumption history")
		startYear  = flag.Int("start-year", 2023, "first year of history")
		startMonth = flag.Int("start-month", 1, "first month of history")
		out        = flag.String("out", "", "write dataset to this .xlsx file")
		toDB       = flag.Bool("db", false, "load dataset into DATABASE_URL")
	)
	flag.Parse()

	if *out == "" && !*toDB {
		log.Fatal("nothing to do: pass -out file.xlsx and/or -db")
	}

	gen := testkit.NewSampleGenerator(*seed)
	start := time.Date(*startYear, time.Month(*startMonth), 1, 0, 0, 0, 0, time.UTC)

	customers := gen.GenerateCustomers(*nCustomers)
	consumption := gen.GenerateConsumption(customers, start, *months)
	weather := gen.GenerateWeather(start, *months)
	log.Printf("Generated %d customers, %d readings, %d weather profiles (seed %d)",
		len(customers), len(consumption), len(weather), *seed)

	ds := &excel.Dataset{Customers: customers, Consumption: consumption, Weather: weather}

	if *out != "" {
		if err := excel.NewWorkbookWriter(*out).Write(ds); err != nil {
			log.Fatalf("Failed to write workbook: %v", err)
		}
		log.Printf("Wrote %s", *out)
	}

	if *toDB {
		if err := loadIntoDatabase(ds); err != nil {
			log.Fatalf("Failed to load database: %v", err)
		}
		log.Printf("Loaded dataset into database")
	}
}

func loadIntoDatabase(ds *excel.Dataset) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required with -db")
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.NewCustomerRepository(db).Save(ctx, ds.Customers); err != nil {
		return err
	}
	readings := postgres.NewReadingRepository(db)
	if err := readings.SaveConsumption(ctx, ds.Consumption); err != nil {
		return err
	}
	return readings.SaveWeather(ctx, ds.Weather)
}
