package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dbkeep/dbkeep/internal/backup"
	"github.com/dbkeep/dbkeep/internal/config"
	"github.com/dbkeep/dbkeep/internal/engine"
	"github.com/dbkeep/dbkeep/internal/engines/mysql"
	"github.com/dbkeep/dbkeep/internal/engines/postgres"
	"github.com/dbkeep/dbkeep/internal/notification"
	"github.com/dbkeep/dbkeep/internal/storage"

	// Import storage backends for self-registration
	_ "github.com/dbkeep/dbkeep/internal/storages"

	// Import notifiers for self-registration
	_ "github.com/dbkeep/dbkeep/internal/notifiers"
)

var (
	cfg = config.New()

	rootCmd = &cobra.Command{
		Use:   "dbkeep",
		Short: "Database backup lifecycle tool",
		Long:  "Backs up databases to object storage and manages the resulting artifacts: listing, download, restore, staging clones and retention.",
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.Environment, "environment", "", "Environment name used as key prefix (e.g. prod)")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.Databases, "database", nil, "Tracked database (repeatable)")
	rootCmd.PersistentFlags().IntVar(&cfg.Keep, "keep", cfg.Keep, "Backups to keep per database during cleanup")
	rootCmd.PersistentFlags().StringVar(&cfg.Engine, "engine", "", "Database engine (mysql, postgres)")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.EngineArgs, "engine-opt", nil, "Engine connection option (format: option=value)")
	rootCmd.PersistentFlags().BoolVar(&cfg.AskPassword, "ask-password", false, "Prompt for the database password")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.StorageArgs, "storage", nil, "Storage pool configuration (format: pool.option=value)")
	rootCmd.PersistentFlags().StringVar(&cfg.DefaultStorage, "default-storage", "", "Default storage pool name")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.NotifyArgs, "notify", nil, "Notification provider configuration (format: provider.option=value)")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.NotifyOn, "notify-on", nil, "Event types to notify on (default: all)")
	rootCmd.PersistentFlags().StringVar(&cfg.DownloadDir, "download-dir", "", "Directory for downloaded backups (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&cfg.TempDir, "temp-dir", cfg.TempDir, "Temporary directory for dump spool files")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(daemonCmd)
}

func setupLogging() {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// setup parses configuration and wires the backup manager. Every
// subcommand except daemon goes through here.
func setup() (*backup.Manager, error) {
	setupLogging()

	cfg.LoadEnvironment()

	if err := cfg.ParseEngineOptions(); err != nil {
		return nil, err
	}
	if err := cfg.ParseStoragePools(); err != nil {
		return nil, err
	}
	if err := cfg.ParseNotifyConfigs(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AskPassword {
		password, err := promptPassword()
		if err != nil {
			return nil, err
		}
		cfg.EngineOptions["password"] = password
	}

	registry := engine.NewRegistry(map[string]engine.Factory{
		"mysql":    mysql.New,
		"postgres": postgres.New,
	})

	eng, err := registry.Create(cfg.Engine, cfg.EngineOptions)
	if err != nil {
		return nil, err
	}

	poolManager, err := storage.NewPoolManager(cfg.StoragePools, cfg.DefaultStorage)
	if err != nil {
		return nil, err
	}

	store, err := poolManager.GetDefault()
	if err != nil {
		return nil, err
	}

	notifyMgr := notification.NewManager()
	for name, notifyCfg := range cfg.NotifyConfigs {
		notifier, err := notification.CreateNotifier(notifyCfg.Type, name, notifyCfg.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to create notifier %q: %w", name, err)
		}
		notifyMgr.AddNotifier(name, notifier)
	}

	return backup.NewManager(eng, store, notifyMgr, cfg), nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
