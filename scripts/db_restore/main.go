package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/intake/internal/config"
	"github.com/garnizeh/intake/internal/db"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	from := flag.String("from", "", "Backup file to restore (required)")
	flag.Parse()

	if *from == "" {
		fmt.Fprintln(os.Stderr, "Restore error: -from is required")
		os.Exit(2)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// refuse to restore something that is not a readable database
	ctx := context.Background()
	check, err := db.New(ctx, *from, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	var n int
	err = check.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n)
	check.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %s is not an intake backup: %v\n", *from, err)
		os.Exit(1)
	}

	if err := copyFile(*from, cfg.DatabasePath); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database %s restored from %s (%d migrations).\n", cfg.DatabasePath, *from, n)
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	tmp := dst + ".restore"
	dstFile, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(tmp)
		return err
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
