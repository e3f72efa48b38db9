package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"container-monitor/application/influx"
	"container-monitor/application/monitor"
	"container-monitor/application/store/sqlite"
	"container-monitor/config"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// run command flags
var (
	runInterval   time.Duration
	runFilter     string
	runSQLitePath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sample containers every interval until interrupted",
	Long: `Sample memory usage of every container every interval and write
the samples to InfluxDB, SQLite or both. A failed cycle is logged and
the next one runs as scheduled.`,
	Example: `  INFLUX_HOST=http://localhost:8086 INFLUX_ORG=org INFLUX_BUCKET=docker INFLUX_TOKEN=... container-monitor run
  container-monitor run --sqlite ./monitor.db --interval 5s --filter 'state == "running"'`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 0,
		"Time between cycle starts (default 10s)")
	runCmd.Flags().StringVarP(&runFilter, "filter", "f", "",
		"Container filter expression over id, name, image, state and status")
	runCmd.Flags().StringVar(&runSQLitePath, "sqlite", "",
		"Also keep samples in this SQLite database")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	logger := newLogger(cfg)
	clk := clock.New()

	filter, err := monitor.CompileFilter(cfg.ContainerFilter)
	if err != nil {
		return err
	}

	sinks := make(monitor.MultiSink, 0, 2)
	if cfg.InfluxEnabled() {
		writer := influx.NewWriter(cfg.Influx, nil, logger, clk)
		defer writer.Close()
		sinks = append(sinks, writer)
	}
	if cfg.SQLitePath != "" {
		store, err := sqlite.New(sqlite.Config{DBPath: cfg.SQLitePath, WAL: true}, clk)
		if err != nil {
			return errors.Wrap(err, "opening sqlite store")
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	m := monitor.New(newDockerClient(cfg, logger), sinks, logger, clk, monitor.Options{
		Interval: cfg.PollInterval,
		Filter:   filter,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("monitor started",
		"socket", cfg.DockerSocket,
		"interval", cfg.PollInterval,
		"influx", cfg.InfluxEnabled(),
		"sqlite", cfg.SQLitePath,
	)

	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("monitor stopped")
	return nil
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.PollInterval = runInterval
	}
	if flags.Changed("filter") {
		cfg.ContainerFilter = runFilter
	}
	if flags.Changed("sqlite") {
		cfg.SQLitePath = runSQLitePath
	}
}
