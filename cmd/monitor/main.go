// File: cmd/monitor/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/log-monitor/internal/config"
	"github.com/smartdevs17/log-monitor/internal/connection"
	"github.com/smartdevs17/log-monitor/internal/ingest"
	"github.com/smartdevs17/log-monitor/internal/metrics"
	"github.com/smartdevs17/log-monitor/internal/server"
	"github.com/smartdevs17/log-monitor/internal/simulator"
	"github.com/smartdevs17/log-monitor/internal/storage"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config         *config.Config
	logger         *logrus.Logger
	metricsManager *metrics.Manager
	gateway        *storage.Gateway
	hub            *connection.Manager
	pipeline       *ingest.Pipeline
	server         *server.HTTPServer
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize logger
	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize components
	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	app.metricsManager = metrics.NewManager()

	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initializeHub()
	app.initializePipeline()

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeStorage initializes the persistence gateway. An unreachable
// store is not fatal: the gateway runs degraded and the service keeps
// ingesting and broadcasting.
func (app *Application) initializeStorage() error {
	app.logger.Info("Initializing persistence gateway")

	store, err := storage.NewStore(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	app.gateway = storage.NewGateway(store)
	app.gateway.SetMetricsManager(app.metricsManager)
	app.gateway.Connect(app.ctx, app.config.Storage.ConnectTimeout)

	return nil
}

// initializeHub initializes the broadcast hub
func (app *Application) initializeHub() {
	app.logger.Info("Initializing broadcast hub")

	app.hub = connection.NewManager(&app.config.Hub)
	app.hub.SetMetricsManager(app.metricsManager)
}

// initializePipeline initializes the ingestion pipeline
func (app *Application) initializePipeline() {
	app.logger.Info("Initializing ingestion pipeline")

	app.pipeline = ingest.NewPipeline(app.gateway, app.hub)
	app.pipeline.SetMetricsManager(app.metricsManager)
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	app.logger.Info("Initializing HTTP server")

	var err error
	app.server, err = server.NewHTTPServer(
		&app.config.Server,
		&app.config.Hub,
		app.gateway,
		app.hub,
		app.pipeline,
		app.metricsManager,
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting log monitor")

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"storage_type":   app.config.Storage.Type,
		"degraded":       app.gateway.Degraded(),
	}).Info("Log monitor started successfully")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping log monitor")

	app.cancel()

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.hub != nil {
		if err := app.hub.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close broadcast hub")
		}
	}

	if app.gateway != nil {
		if err := app.gateway.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close persistence gateway")
		}
	}

	app.logger.Info("Log monitor stopped successfully")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "log-monitor",
	Short:   "Real-time log monitor",
	Long:    `A real-time log monitoring service that ingests structured log events over HTTP, persists them best-effort, and streams them live to connected WebSocket viewers.`,
	Version: AppVersion,
	RunE:    runMonitor,
}

// runMonitor is the main command to run the monitor
func runMonitor(cmd *cobra.Command, args []string) error {
	// Load configuration
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create application
	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Set up signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	// Start application
	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	// Stop application
	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("log-monitor %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Storage: %s\n", cfg.Storage.Type)
		fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)

		return nil
	},
}

// simulateCmd runs the log producer simulator
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate log traffic against a running monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if target, _ := cmd.Flags().GetString("target"); target != "" {
			cfg.Simulator.TargetURL = target
		}
		if follow, _ := cmd.Flags().GetString("follow"); follow != "" {
			cfg.Simulator.FollowFile = follow
		}
		if rps, _ := cmd.Flags().GetFloat64("rate"); rps > 0 {
			cfg.Simulator.RatePerSecond = rps
		}

		if err := utils.InitLogger(cfg.Logging.Level, "text", "stdout", ""); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		sim := simulator.New(&cfg.Simulator)
		return sim.Run(ctx)
	},
}

// init initializes the CLI commands
func init() {
	// Add persistent flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Simulator flags
	simulateCmd.Flags().String("target", "", "ingestion endpoint URL")
	simulateCmd.Flags().String("follow", "", "tail the given file instead of generating random logs")
	simulateCmd.Flags().Float64("rate", 0, "records per second")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(simulateCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
