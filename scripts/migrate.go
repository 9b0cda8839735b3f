//go:build ignore

// Command migrate applies SQL migrations from migrations/ against the
// configured database. Run in CI/CD before deploying:
//
//	go run scripts/migrate.go
package main

import (
	"log"

	"github.com/tubechat/tubechat/internal/infrastructure/database"
	"github.com/tubechat/tubechat/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migrations applied")
}
