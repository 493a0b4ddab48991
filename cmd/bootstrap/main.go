// Command bootstrap creates the first admin account so the admin-only
// endpoints can be used without demo data.
//
//	go run ./cmd/bootstrap -email admin@city.gov -name "City Admin" -password secret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"wastewatch-backend/internal/config"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/internal/storage"
)

func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "", "display name, defaults to the email local part")
	phone := flag.String("phone", "", "contact phone")
	password := flag.String("password", "", "password, required when AUTH_MODE=password")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		log.Fatal("-email is required")
	}

	if err := run(*email, *name, *phone, *password); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// run returns instead of exiting so the store is always closed.
func run(email, name, phone, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateStore(); err != nil {
		return fmt.Errorf("configuration is incomplete: %w", err)
	}
	if cfg.StoreDriver == config.StoreDriverMemory {
		return errors.New("STORE_DRIVER=memory keeps nothing; point bootstrap at postgres or mongo")
	}
	if cfg.AuthMode == config.AuthModePassword && password == "" {
		return errors.New("-password is required when AUTH_MODE=password")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("⚠️  Failed to close store: %v", err)
		}
	}()

	if name == "" {
		name = models.DisplayNameFromEmail(email)
	}

	identity := services.NewIdentityService(st, nil)
	user, err := identity.CreateUser(ctx, models.CreateUserRequest{
		Email:    email,
		Name:     name,
		Phone:    phone,
		Role:     string(models.RoleAdmin),
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	log.Printf("✅ Created admin %s (%s)", user.Email, user.ID)
	return nil
}
