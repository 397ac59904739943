package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thomah/le-ptit-terminal/internal/app"
	"github.com/Thomah/le-ptit-terminal/internal/config"
	"github.com/Thomah/le-ptit-terminal/internal/eventbrite"
	"github.com/Thomah/le-ptit-terminal/internal/storage"
)

const debugEnvVar = "LE_PTIT_TERMINAL_DEBUG"

type startupOptions struct {
	configPath string
	baseURL    string
	dbPath     string
}

// resolveStartupOptions works out the config file location, the Eventbrite
// endpoint and the snapshot database path. An --endpoint flag wins over the
// config file, which wins over the production default.
func resolveStartupOptions(configPath, endpoint string) (startupOptions, error) {
	if configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return startupOptions{}, fmt.Errorf("resolve config path: %w", err)
		}
		configPath = path
	}
	configPath, err := filepath.Abs(configPath)
	if err != nil {
		return startupOptions{}, fmt.Errorf("resolve config path: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return startupOptions{}, fmt.Errorf("load config: %w", err)
	}

	baseURL := eventbrite.DefaultBaseURL
	if cfg.APIBaseURL != "" {
		baseURL = cfg.APIBaseURL
	}
	if endpoint != "" {
		baseURL = endpoint
	}

	return startupOptions{
		configPath: configPath,
		baseURL:    baseURL,
		dbPath:     filepath.Join(filepath.Dir(configPath), "snapshots.db"),
	}, nil
}

func newRootCmd() *cobra.Command {
	var configPath string
	var endpoint string
	var fresh bool

	cmd := &cobra.Command{
		Use:          "le-ptit-terminal",
		Short:        "Terminal de gestion des maraudes des Ptits Gilets",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(configPath, endpoint, fresh)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "chemin du fichier de configuration")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "URL de base de l'API Eventbrite")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignorer la liste en cache au démarrage")
	return cmd
}

func runTUI(configPath, endpoint string, fresh bool) error {
	opts, err := resolveStartupOptions(configPath, endpoint)
	if err != nil {
		return err
	}

	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := storage.Open(openCtx, opts.dbPath)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	// The store just created the config directory, so the log can live there.
	if os.Getenv(debugEnvVar) != "" {
		logPath := filepath.Join(filepath.Dir(opts.configPath), "debug.log")
		logFile, err := tea.LogToFile(logPath, "debug")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer logFile.Close()
	}

	auth := eventbrite.NewAuthenticator(opts.configPath)
	client := eventbrite.New(opts.baseURL, auth)

	model := app.NewModelWithOptions(client, store, opts.configPath, app.ModelOptions{
		SkipSnapshot: fresh,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
