package main

import (
	"fmt"
	"log"

	"wastewatch-backend/internal/config"
	"wastewatch-backend/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Applying %d migration statements", len(database.Migrations))
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	var result struct {
		Users   int `db:"users"`
		Reports int `db:"reports"`
		Bins    int `db:"bins"`
		Drivers int `db:"drivers"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM reports) AS reports,
			(SELECT COUNT(*) FROM bins) AS bins,
			(SELECT COUNT(*) FROM drivers) AS drivers
	`
	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users:                   %d\n", result.Users)
	fmt.Printf("Reports:                 %d\n", result.Reports)
	fmt.Printf("Bins:                    %d\n", result.Bins)
	fmt.Printf("Drivers:                 %d\n", result.Drivers)
	fmt.Println("============================================================")
}
