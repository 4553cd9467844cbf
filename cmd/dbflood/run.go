package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bit2swaz/dbflood/internal/adapter"
	"github.com/bit2swaz/dbflood/internal/api"
	"github.com/bit2swaz/dbflood/internal/config"
	"github.com/bit2swaz/dbflood/internal/loadtest"
	"github.com/spf13/cobra"
)

var (
	configPath     string
	dbType         string
	dbHost         string
	dbPort         int
	dbName         string
	dbSID          string
	dbUser         string
	dbPassword     string
	minPoolSize    int
	maxPoolSize    int
	threadCount    int
	durationSecs   int
	monitorSecs    int
	metricsPort    int
	logLevel       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the load test against the configured database",
	Long: `Run the load test: N worker threads each cycling
INSERT -> COMMIT -> SELECT -> VERIFY against the target database until the
configured duration elapses, with a monitor reporting throughput every
interval.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	runCmd.Flags().StringVar(&dbType, "db-type", "", "Database type (postgresql, sqlite, snowflake)")
	runCmd.Flags().StringVar(&dbHost, "host", "", "Database host (account identifier for snowflake)")
	runCmd.Flags().IntVar(&dbPort, "port", 0, "Database port")
	runCmd.Flags().StringVar(&dbName, "database", "", "Database name (file path for sqlite)")
	runCmd.Flags().StringVar(&dbSID, "sid", "", "SID / schema name where applicable")
	runCmd.Flags().StringVar(&dbUser, "user", "", "Database username")
	runCmd.Flags().StringVar(&dbPassword, "password", "", "Database password")
	runCmd.Flags().IntVar(&minPoolSize, "min-pool-size", 0, "Minimum pool size")
	runCmd.Flags().IntVar(&maxPoolSize, "max-pool-size", 0, "Maximum pool size")
	runCmd.Flags().IntVar(&threadCount, "thread-count", 0, "Number of worker threads")
	runCmd.Flags().IntVar(&durationSecs, "test-duration", 0, "Test duration in seconds")
	runCmd.Flags().IntVar(&monitorSecs, "monitor-interval", 0, "Monitor interval in seconds")
	runCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Port for the /metrics and /status HTTP server")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runRun(cmd *cobra.Command, args []string) error {
	printBanner()

	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logConfiguration(cfg)

	tester, err := loadtest.New(adapterConfig(cfg), cfg.Test.MonitorInterval())
	if err != nil {
		return fmt.Errorf("failed to create tester: %w", err)
	}

	statusServer := api.NewServer(tester.Registry(), cfg.Server.MetricsPort)
	go statusServer.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = tester.Run(ctx, cfg.Test.ThreadCount, cfg.Test.Duration())
	if err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}
	return nil
}

// applyFlagOverrides layers explicitly-set flags over the file/env config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db-type") {
		cfg.Database.Type = dbType
	}
	if flags.Changed("host") {
		cfg.Database.Host = dbHost
	}
	if flags.Changed("port") {
		cfg.Database.Port = dbPort
	}
	if flags.Changed("database") {
		cfg.Database.Database = dbName
	}
	if flags.Changed("sid") {
		cfg.Database.SID = dbSID
	}
	if flags.Changed("user") {
		cfg.Database.User = dbUser
	}
	if flags.Changed("password") {
		cfg.Database.Password = dbPassword
	}
	if flags.Changed("min-pool-size") {
		cfg.Database.MinPoolSize = minPoolSize
	}
	if flags.Changed("max-pool-size") {
		cfg.Database.MaxPoolSize = maxPoolSize
	}
	if flags.Changed("thread-count") {
		cfg.Test.ThreadCount = threadCount
	}
	if flags.Changed("test-duration") {
		cfg.Test.DurationSeconds = durationSecs
	}
	if flags.Changed("monitor-interval") {
		cfg.Test.MonitorIntervalSeconds = monitorSecs
	}
	if flags.Changed("metrics-port") {
		cfg.Server.MetricsPort = metricsPort
	}
}

func adapterConfig(cfg *config.Config) adapter.Config {
	return adapter.Config{
		Type:           cfg.Database.Type,
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Database:       cfg.Database.Database,
		SID:            cfg.Database.SID,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		MinPoolSize:    cfg.Database.MinPoolSize,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		AcquireTimeout: cfg.Database.AcquireTimeout(),
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

func logConfiguration(cfg *config.Config) {
	attrs := []any{
		"db_type", cfg.Database.Type,
		"host", cfg.Database.Host,
		"user", cfg.Database.User,
		"min_pool_size", cfg.Database.MinPoolSize,
		"max_pool_size", cfg.Database.MaxPoolSize,
		"thread_count", cfg.Test.ThreadCount,
		"test_duration_seconds", cfg.Test.DurationSeconds,
		"monitor_interval_seconds", cfg.Test.MonitorIntervalSeconds,
		"metrics_port", cfg.Server.MetricsPort,
	}
	if cfg.Database.Port != 0 {
		attrs = append(attrs, "port", cfg.Database.Port)
	}
	if cfg.Database.Database != "" {
		attrs = append(attrs, "database", cfg.Database.Database)
	}
	if cfg.Database.SID != "" {
		attrs = append(attrs, "sid", cfg.Database.SID)
	}
	slog.Info("Load tester configuration", attrs...)
}
