package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"prompt-explorer/internal/database"
	"prompt-explorer/internal/settings"
)

const defaultTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	dbPath := os.Getenv("PROMPT_CACHE_DB")
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(settings.DefaultPath()), "prompts.db")
	}

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open prompt cache at %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	switch command {
	case "stats":
		if !showStats(ctx, db) {
			os.Exit(1)
		}
	case "prune":
		if !prune(ctx, db, os.Args[2:]) {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Prompt Explorer Cache Maintenance")
	fmt.Println("")
	fmt.Println("Usage: promptcache <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  stats          - Show cached prompt counts")
	fmt.Println("  prune [days]   - Drop rows not refreshed in the given days (default 90)")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  PROMPT_CACHE_DB - Path to the cache database (default: next to settings)")
}

func showStats(ctx context.Context, db *database.Database) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	count, err := db.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	fmt.Printf("Cached prompts: %d\n", count)
	return true
}

func prune(ctx context.Context, db *database.Database, args []string) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	days := 90
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			fmt.Fprintf(os.Stderr, "Error: invalid day count %q\n", args[0])
			return false
		}
		days = parsed
	}

	pruned, err := db.Prune(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	fmt.Printf("Pruned %d rows older than %d days.\n", pruned, days)
	return true
}
