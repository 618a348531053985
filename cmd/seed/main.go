package main

import (
	"context"
	"log"
	"os"

	"marketplace-api/internal/config"
	"marketplace-api/internal/db"
	"marketplace-api/internal/seed"
	usersvc "marketplace-api/internal/service/user"
	"marketplace-api/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	st := store.NewPostgres(pool, logger)
	defer st.Close()

	repos := st.Repos()
	users := usersvc.New(repos.Users, repos.Tokens, cfg.TokenTTL)
	if err := seed.Apply(ctx, users, repos.Users, repos.Products); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Println("seed applied")
}
