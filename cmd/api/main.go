// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"libradesk/internal/auth"
	"libradesk/internal/config"
	"libradesk/internal/server"
	"libradesk/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := server.NewRouter(db, issuer)

	log.Printf("libradesk API listening on port %s (%s)", cfg.Server.Port, cfg.Database.Driver)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, router))
}
