// Package main provides the gmalt command line tools for SRTM
// elevation data.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gmalt/hgt/internal/app"
	"github.com/gmalt/hgt/internal/application"
	"github.com/gmalt/hgt/internal/config"
	"github.com/gmalt/hgt/internal/dataset"
	"github.com/gmalt/hgt/internal/domain"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfgFile string
	watch   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gmalt",
	Short: "gmalt - SRTM elevation import and lookup",
	Long: `gmalt downloads, decodes and stores SRTM HGT elevation files.

A dataset file names the archives of an SRTM collection; gmalt fetches
them from a mirror, unpacks them and loads the elevation samples into
SQLite, one row per sample or as WKB raster tiles.

Features:
  - Point lookups against raw HGT files
  - Concurrent download, extract and import stages
  - Idempotent imports, safe to re-run
  - Multiple mirror backends (local, AWS S3, Azure, HTTP)
  - Hot import of files dropped into the working folder
  - Prometheus metrics`,
}

var readCmd = &cobra.Command{
	Use:   "read <lat> <lng> <file>",
	Short: "Read the elevation at a coordinate from one HGT file",
	Args:  cobra.ExactArgs(3),
	RunE:  runRead,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <dataset>",
	Short: "Download and unpack the archives of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

var loadCmd = &cobra.Command{
	Use:   "load <dataset>",
	Short: "Download, unpack and import a dataset into SQLite",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("gmalt %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (json, text)")

	// Pipeline flags, shared by fetch and load
	rootCmd.PersistentFlags().String("folder", "./data", "working folder for archives and HGT files")
	rootCmd.PersistentFlags().Int("concurrency", 0, "workers per stage (default: number of CPUs)")
	rootCmd.PersistentFlags().Bool("skip-download", false, "skip the download stage")
	rootCmd.PersistentFlags().Bool("skip-extract", false, "skip the extract stage")

	// Storage flags
	rootCmd.PersistentFlags().String("storage-type", "local", "mirror type (local, s3, azure, http)")
	rootCmd.PersistentFlags().String("storage-path", "./data", "local mirror path")
	rootCmd.PersistentFlags().String("base-url", "", "HTTP mirror base URL")
	rootCmd.PersistentFlags().String("username", "", "HTTP mirror username")
	rootCmd.PersistentFlags().String("password", "", "HTTP mirror password")

	// Metrics flags
	rootCmd.PersistentFlags().Bool("metrics", false, "serve Prometheus metrics while running")
	rootCmd.PersistentFlags().String("metrics-address", ":9090", "metrics listen address")

	// Import flags
	loadCmd.Flags().BoolVar(&watch, "watch", false, "keep importing files dropped into the folder")
	loadCmd.Flags().Bool("raster", false, "store WKB raster tiles instead of one row per sample")
	loadCmd.Flags().Int("sample-width", 0, "tile width in samples (0: whole file)")
	loadCmd.Flags().Int("sample-height", 0, "tile height in samples (0: whole file)")
	loadCmd.Flags().String("db-path", "./gmalt.db", "SQLite database path")
	loadCmd.Flags().String("db-table", "elevation", "elevation table name")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("folder", rootCmd.PersistentFlags().Lookup("folder"))
	_ = viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	_ = viper.BindPFlag("download.skip", rootCmd.PersistentFlags().Lookup("skip-download"))
	_ = viper.BindPFlag("extract.skip", rootCmd.PersistentFlags().Lookup("skip-extract"))
	_ = viper.BindPFlag("storage.type", rootCmd.PersistentFlags().Lookup("storage-type"))
	_ = viper.BindPFlag("storage.local_path", rootCmd.PersistentFlags().Lookup("storage-path"))
	_ = viper.BindPFlag("storage.http.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("storage.http.username", rootCmd.PersistentFlags().Lookup("username"))
	_ = viper.BindPFlag("storage.http.password", rootCmd.PersistentFlags().Lookup("password"))
	_ = viper.BindPFlag("metrics.enabled", rootCmd.PersistentFlags().Lookup("metrics"))
	_ = viper.BindPFlag("metrics.address", rootCmd.PersistentFlags().Lookup("metrics-address"))
	_ = viper.BindPFlag("import.raster", loadCmd.Flags().Lookup("raster"))
	_ = viper.BindPFlag("import.sample_width", loadCmd.Flags().Lookup("sample-width"))
	_ = viper.BindPFlag("import.sample_height", loadCmd.Flags().Lookup("sample-height"))
	_ = viper.BindPFlag("database.path", loadCmd.Flags().Lookup("db-path"))
	_ = viper.BindPFlag("database.table", loadCmd.Flags().Lookup("db-table"))

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func runRead(_ *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q: %w", args[0], err)
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q: %w", args[1], err)
	}

	logger := setupLogger(config.LoggingConfig{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
	})

	service := application.NewLookupService(logger)
	result, err := service.Lookup(context.Background(), domain.LookupRequest{
		Coordinate: domain.NewCoordinate(lat, lng),
		Path:       args[2],
	})
	if err != nil {
		return err
	}

	value := result.Value
	if result.Void {
		value = domain.VoidValue
	}
	fmt.Printf("Report:\n")
	fmt.Printf("    Location: (%dP,%dL)\n", result.Col, result.Row)
	fmt.Printf("    Band 1:\n")
	fmt.Printf("        Value: %d\n", value)
	return nil
}

func runFetch(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.Import.Skip = true

	return runPipeline(cfg, args[0], false)
}

func runLoad(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	return runPipeline(cfg, args[0], watch)
}

func runPipeline(cfg *config.Config, datasetPath string, keepWatching bool) error {
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting gmalt",
		"version", version,
		"folder", cfg.Folder,
		"concurrency", cfg.Concurrency,
		"storage_type", cfg.Storage.Type,
	)

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize application
	application, err := app.New(ctx, cfg, ds, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	// Run the pipeline in background
	runErr := make(chan error, 1)
	go func() {
		runErr <- application.Run(ctx, keepWatching)
	}()

	var failure error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		failure = <-runErr
	case failure = <-runErr:
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if failure != nil && !errors.Is(failure, context.Canceled) {
		return failure
	}
	logger.Info("done")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(time.Now().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
