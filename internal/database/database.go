package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 Database URL length: %d characters", len(dbURL))
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	log.Println("🔄 Step 1: Attempting sqlx.Connect()...")
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("✅ Step 1 Complete: sqlx.Connect() succeeded")

	log.Println("🔄 Step 2: Testing connection with Ping()...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("✅ Step 2 Complete: Ping() succeeded")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	return db, nil
}

// Migrations is the ordered schema for the Postgres store. Every statement is
// idempotent so Migrate can run on every startup.
var Migrations = []string{
	// Create users table
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK(role IN ('citizen', 'worker', 'admin')),
		eco_points INT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,

	// Create reports table. seq orders reports created within the same second.
	`CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		waste_type TEXT NOT NULL CHECK(waste_type IN ('general', 'recyclable', 'hazardous', 'organic', 'e_waste', 'bulk', 'landfill')),
		location TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		image_url TEXT,
		status TEXT NOT NULL CHECK(status IN ('reported', 'in_progress', 'resolved')),
		assigned_worker TEXT,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		resolved_at BIGINT,
		version BIGINT NOT NULL DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (assigned_worker) REFERENCES users(id)
	)`,

	// Create bins table
	`CREATE TABLE IF NOT EXISTS bins (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		capacity INT NOT NULL CHECK(capacity > 0),
		current_level INT NOT NULL DEFAULT 0 CHECK(current_level BETWEEN 0 AND 100),
		waste_type TEXT NOT NULL,
		last_collected BIGINT,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		version BIGINT NOT NULL DEFAULT 0
	)`,

	// Create drivers table. An unavailable driver must be on a route.
	`CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		vehicle_number TEXT NOT NULL,
		shift TEXT NOT NULL CHECK(shift IN ('morning', 'evening', 'night')),
		availability BOOLEAN NOT NULL DEFAULT TRUE,
		current_route TEXT,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		version BIGINT NOT NULL DEFAULT 0,
		CHECK (availability OR current_route IS NOT NULL)
	)`,

	// Create device tokens table for FCM push
	`CREATE TABLE IF NOT EXISTS device_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android', 'web')),
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,

	// Create indexes
	`CREATE INDEX IF NOT EXISTS idx_reports_user_id ON reports(user_id, created_at DESC, seq DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status, created_at DESC, seq DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bins_location ON bins(location)`,
	`CREATE INDEX IF NOT EXISTS idx_bins_current_level ON bins(current_level)`,
	`CREATE INDEX IF NOT EXISTS idx_drivers_name ON drivers(name)`,
	`CREATE INDEX IF NOT EXISTS idx_device_tokens_user_id ON device_tokens(user_id)`,
}

func Migrate(db *sqlx.DB) error {
	for i, migration := range Migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
