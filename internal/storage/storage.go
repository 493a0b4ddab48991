// Package storage opens the store selected by STORE_DRIVER.
package storage

import (
	"context"
	"log"

	"wastewatch-backend/internal/config"
	"wastewatch-backend/internal/database"
	"wastewatch-backend/internal/mongostore"
	"wastewatch-backend/internal/store"
	"wastewatch-backend/internal/store/memory"
)

// Open connects to the configured backend. Postgres schemas are migrated on
// open; Mongo indexes are ensured by mongostore.Connect.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		log.Println("🔌 Connecting to MongoDB...")
		st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.Println("✅ MongoDB connection established")
		return st, nil

	case config.StoreDriverMemory:
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		log.Println("🔌 Connecting to database...")
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("🔄 Running database migrations...")
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		log.Println("✅ Database migrations completed")
		return database.NewStore(db), nil
	}
}
