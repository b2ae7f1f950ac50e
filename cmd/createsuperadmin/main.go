package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/storage/postgres"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "", "Superadmin email address")
	password := flag.String("password", "", "Superadmin password (min 8 characters)")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("Both -email and -password flags are required")
	}
	if len(*password) < 8 {
		log.Fatal("Password must be at least 8 characters long")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewAccountRepository(pool, logger)

	existing, err := repo.FindByEmail(context.Background(), *email)
	if err != nil {
		log.Fatalf("Failed to check for existing account: %v", err)
	}
	if existing != nil {
		log.Fatalf("Account with email %s already exists (id=%s)", *email, existing.ID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	acct := &account.Account{
		Email:        *email,
		PasswordHash: string(hash),
		Role:         account.RoleSuperadmin,
		IsActive:     true,
	}

	id, err := repo.Create(context.Background(), acct)
	if err != nil {
		log.Fatalf("Failed to create superadmin account: %v", err)
	}

	fmt.Printf("Superadmin account created with ID: %s\n", id)
}
