package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kozaktomas/face-studio/internal/config"
	"github.com/kozaktomas/face-studio/internal/imagestore"
	"github.com/kozaktomas/face-studio/internal/pipeline"
	"github.com/kozaktomas/face-studio/internal/session"
	"github.com/kozaktomas/face-studio/internal/store"
	"github.com/kozaktomas/face-studio/internal/store/postgres"
	"github.com/kozaktomas/face-studio/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Studio web server.
The web server provides a browser-based interface for uploading source
face images, collecting target photos, running batch swaps and
downloading the results.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("provider", providerGemini, "AI provider (gemini, openai)")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// openPreferenceStore picks PostgreSQL when DATABASE_URL is set, otherwise
// the JSON file store.
func openPreferenceStore(cfg *config.Config) (store.Store, *postgres.Pool, error) {
	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		fmt.Printf("Preference persistence enabled (PostgreSQL)\n")
		return postgres.NewPreferenceStore(pool), pool, nil
	}

	st, err := store.NewFileStore(cfg.Studio.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open preference file: %w", err)
	}
	fmt.Printf("Preference persistence enabled (%s)\n", cfg.Studio.StorePath)
	return st, nil, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	images, err := imagestore.New(filepath.Join(cfg.Studio.DataDir, "images"))
	if err != nil {
		return fmt.Errorf("failed to open image store: %w", err)
	}

	st, pool, err := openPreferenceStore(cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	sess := session.NewManager(st, images, session.NewAnalysisCache())
	if err := sess.Restore(context.Background()); err != nil {
		fmt.Printf("Warning: failed to restore previous session: %v\n", err)
	}

	provider, err := createAIProvider(context.Background(), cfg, mustGetString(cmd, "provider"))
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(sess, images, provider)
	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, sess, provider, runner, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		// Write the final session snapshot before the process exits.
		sess.Flush()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Studio Web UI on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
