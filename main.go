package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-web/internal/app"
	"library-web/internal/config"
	"library-web/internal/logger"
	"library-web/library"
)

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func openManager(cfg config.Config) (*library.LibraryManager, error) {
	return library.NewLibraryManager(cfg.DatabaseDriver, cfg.DatabaseDSN, library.WithBcryptCost(cfg.BcryptCost))
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}

	root := &cobra.Command{
		Use:          "library",
		Short:        "Library circulation web service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	root.AddCommand(
		serveCmd(cfg),
		migratePasswordsCmd(cfg),
		createAdminCmd(cfg),
		listBooksCmd(cfg),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize app", map[string]any{"error": err.Error()})
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Run()
	}()

	logger.Info("library started", map[string]any{"port": cfg.AppPort})

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received", nil)
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", map[string]any{"error": err.Error()})
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
		return err
	}

	logger.Info("library stopped cleanly", nil)
	return nil
}

func migratePasswordsCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-passwords",
		Short: "Hash every plaintext password still stored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			n, err := mgr.MigrateLegacyPasswords(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Migrated %d password(s).\n", n)
			return nil
		},
	}
}

func createAdminCmd(cfg config.Config) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !library.ValidRegistration(name, email, "x") {
				return errors.New("--name and a valid --email are required")
			}
			password, err := readPassword(fmt.Sprintf("Enter password for %s: ", name))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			mgr, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			id, err := mgr.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Printf("Added admin '%s' with ID %d\n", name, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	return cmd
}

func listBooksCmd(cfg config.Config) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list-books",
		Short: "Print the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			ctx := cmd.Context()
			books, err := mgr.SearchBooks(ctx, query)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("No books in library.")
				return nil
			}

			fmt.Printf("%-5s %-30s %-25s %-6s %-10s %-20s %s\n", "ID", "Title", "Author", "Year", "Status", "Borrower", "Due")
			fmt.Println(strings.Repeat("-", 120))
			for _, b := range books {
				var borrower string
				if b.BorrowerID != nil {
					if u, err := mgr.GetUser(ctx, *b.BorrowerID); err == nil {
						borrower = u.Name
					} else {
						borrower = fmt.Sprintf("ID: %d", *b.BorrowerID)
					}
				}
				fmt.Println(library.PrettyBook(b, borrower))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "title filter")
	return cmd
}
