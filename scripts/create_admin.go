package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/internal/models"
	"sdp-backend/internal/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Creates an admin console account. The first operator is usually seeded
// this way since the console has no self-service signup.
func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "Administrator", "display name")
	role := flag.String("role", models.RoleSuperAdmin, "super_admin, admin, owner or staff")
	perms := flag.String("permissions", "", "comma separated permissions, e.g. accounts.read,admins.update")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if *email == "" || password == "" {
		fmt.Println("usage: ADMIN_PASSWORD=... go run ./scripts -email ops@example.com [-role staff -permissions accounts.read]")
		os.Exit(2)
	}
	switch *role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleOwner, models.RoleStaff:
	default:
		log.Fatalf("Unknown role %q", *role)
	}

	// Load environment variables
	godotenv.Load()

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "sdp_db")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		dbUser, dbPassword, dbHost, dbPort, dbName)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v\n", err)
	}

	admin := &models.AdminAccount{
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		PasswordHash: hash,
		Name:         *name,
		Role:         *role,
		IsActive:     true,
	}
	for _, p := range strings.Split(*perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			admin.Permissions = append(admin.Permissions, p)
		}
	}

	err = repositories.NewAdminRepository(pool).Create(ctx, admin)
	if errors.Is(err, apperr.ErrEmailTaken) {
		log.Fatalf("An admin with email %s already exists\n", admin.Email)
	}
	if err != nil {
		log.Fatalf("Failed to create admin: %v\n", err)
	}

	fmt.Printf("✓ Created %s %s (id %s)\n", admin.Role, admin.Email, admin.ID)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
