package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"blogauth/internal/database"
	"blogauth/internal/repository"
)

// Expired refresh credentials are also swept opportunistically inside issue
// and revoke; this binary exists for cron so idle rows do not pile up.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	credRepo := repository.NewRefreshCredentialRepository(db)
	deleted, err := credRepo.DeleteExpired(context.Background())
	if err != nil {
		log.Fatalf("cleanup refresh_credentials failed: %v", err)
	}

	log.Printf("auth cleanup completed: refresh_credentials=%d", deleted)
}
