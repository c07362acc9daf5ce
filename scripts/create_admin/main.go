package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/garnizeh/intake/internal/auth"
	"github.com/garnizeh/intake/internal/config"
	"github.com/garnizeh/intake/internal/db"
	"github.com/garnizeh/intake/internal/repository/sqlite"
	"github.com/garnizeh/intake/pkg/models"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		email      = flag.String("email", "", "Admin e-mail (required)")
		name       = flag.String("name", "Admin", "Display name")
		password   = flag.String("password", "", "Password; defaults to $INTAKE_ADMIN_PASSWORD")
		inactive   = flag.Bool("inactive", false, "Create the account disabled")
	)
	flag.Parse()

	pw := *password
	if pw == "" {
		pw = os.Getenv("INTAKE_ADMIN_PASSWORD")
	}
	addr := strings.ToLower(strings.TrimSpace(*email))
	if err := validator.New().Var(addr, "required,email"); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -email %q\n", *email)
		os.Exit(2)
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid password: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	logger := cfg.NewLogger(os.Stderr)
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	repo := sqlite.New(database, logger)
	existing, err := repo.GetAdminCredentials(ctx, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB error: %v\n", err)
		os.Exit(1)
	}
	if existing != nil {
		fmt.Fprintf(os.Stderr, "Admin %s already exists\n", addr)
		os.Exit(1)
	}

	now := time.Now().UTC()
	a := &models.Admin{
		ID:           uuid.NewString(),
		Email:        addr,
		PasswordHash: hash,
		Name:         strings.TrimSpace(*name),
		Role:         models.RoleAdmin,
		IsActive:     !*inactive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateAdmin(ctx, a); err != nil {
		fmt.Fprintf(os.Stderr, "Create admin error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin %s created (id %s, active %t).\n", a.Email, a.ID, a.IsActive)
}
