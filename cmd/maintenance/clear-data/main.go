package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/smarttransit/bus-ticketing/internal/config"
	"github.com/smarttransit/bus-ticketing/internal/database"
)

// bookingTables are emptied by this tool; buses are kept
var bookingTables = []string{
	"payment_audits",
	"seat_holds",
	"bookings",
}

func main() {
	var dbURLFlag string
	var includeBuses bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&includeBuses, "include-buses", false, "also truncate the buses table")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	if os.Getenv("ENVIRONMENT") == "production" {
		log.Fatal("refusing to clear data in production")
	}

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := bookingTables
	if includeBuses {
		tables = append(tables, "buses")
	}

	fmt.Println("Connected to database. Truncating tables...")

	for _, t := range tables {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", t)); err != nil {
			log.Fatalf("failed to truncate %s: %v", t, err)
		}
	}

	fmt.Println("Booking data cleared successfully.")

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
