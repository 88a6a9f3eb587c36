package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"stepone/internal/config"
	"stepone/internal/provider"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your StepOne installation",
		Long: `Verifies that StepOne's configuration, API key, public directory,
upstream service, and history database are correctly set up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("StepOne Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'stepone init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}
			printPass("Config validation", "valid")
			passed++

			// 3. API key present
			if cfg.Gemini.APIKey == "" {
				printWarn("API key", "GEMINI_API_KEY not set — relay will answer with the missing-key notice")
				warned++
			} else {
				printPass("API key", "configured")
				passed++
			}

			// 4. Public directory
			if info, err := os.Stat(cfg.Server.PublicDir); err != nil {
				printFail("Public dir", fmt.Sprintf("not found: %s", cfg.Server.PublicDir))
				failed++
			} else if !info.IsDir() {
				printFail("Public dir", fmt.Sprintf("not a directory: %s", cfg.Server.PublicDir))
				failed++
			} else {
				printPass("Public dir", cfg.Server.PublicDir)
				passed++
				if _, err := os.Stat(filepath.Join(cfg.Server.PublicDir, "index.html")); err != nil {
					printWarn("Front end", "index.html missing — the root redirect will 404")
					warned++
				}
			}

			// 5. Upstream reachability (skipped without a key)
			if cfg.Gemini.APIKey != "" {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				gen := provider.NewGemini(provider.GeminiConfig{
					APIKey:  cfg.Gemini.APIKey,
					APIBase: cfg.Gemini.APIBase,
					Model:   cfg.Gemini.Model,
					Logger:  logger,
				})
				if err := gen.Healthy(ctx); err != nil {
					printFail("Upstream", err.Error())
					failed++
				} else {
					printPass("Upstream", cfg.Gemini.APIBase)
					passed++
				}
				cancel()
			}

			// 6. History database
			if cfg.History.Enabled {
				if err := checkDatabase(cfg.History.DBPath); err != nil {
					printFail("History DB", err.Error())
					failed++
				} else {
					printPass("History DB", cfg.History.DBPath)
					passed++
				}
			}

			// 7. Server port free
			if err := checkPort(cfg.Server.Port); err != nil {
				printWarn("Server port", fmt.Sprintf("port %d busy (already serving?): %v", cfg.Server.Port, err))
				warned++
			} else {
				printPass("Server port", fmt.Sprintf("%d available", cfg.Server.Port))
				passed++
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running StepOne.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nStepOne should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! StepOne is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
