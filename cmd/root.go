// Package cmd provides the CLI commands for container-monitor using Cobra.
package cmd

import (
	"log/slog"
	"os"

	"container-monitor/application/docker"
	"container-monitor/application/http"
	"container-monitor/config"
	"container-monitor/transport/unix"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// persistent flags
var (
	socketPath string
	hostHeader string
	logLevel   string
	readSize   uint
)

var rootCmd = &cobra.Command{
	Use:   "container-monitor",
	Short: "Samples Docker container memory usage into InfluxDB",
	Long: `container-monitor talks to the Docker daemon over its unix socket
with a small built-in HTTP/1.1 client, and writes memory usage of
every container to InfluxDB and/or a local SQLite database.

Settings are read from the environment (DOCKER_SOCKET, POLL_INTERVAL,
INFLUX_HOST, INFLUX_ORG, INFLUX_BUCKET, INFLUX_TOKEN, SQLITE_PATH,
CONTAINER_FILTER, LOG_LEVEL). Flags override them.

Examples:
  container-monitor run                            # Poll every POLL_INTERVAL
  container-monitor containers                     # Print one sample
  container-monitor get /version                   # Raw GET on the socket`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "",
		"Docker daemon socket (default "+unix.DefaultDockerSocket+")")
	rootCmd.PersistentFlags().StringVar(&hostHeader, "host-header", "",
		"Host header sent to the daemon")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().UintVar(&readSize, "read-size", 0,
		"Bytes per socket read")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(containersCmd)
}

// loadConfig reads the environment and applies flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, errors.Wrap(err, "loading config")
	}

	flags := cmd.Flags()
	if flags.Changed("socket") {
		cfg.DockerSocket = socketPath
	}
	if flags.Changed("host-header") {
		cfg.DockerHostHeader = hostHeader
	}
	if flags.Changed("log-level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return config.Config{}, errors.Wrap(err, "parsing --log-level")
		}
	}

	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

func newDockerClient(cfg config.Config, logger *slog.Logger) *docker.Client {
	return docker.NewClient(
		unix.NewDialer(cfg.DockerSocket),
		cfg.DockerHostHeader,
		logger,
		http.Options{ReadSize: readSize},
	)
}
