// Package config loads settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"container-monitor/application/influx"
	"container-monitor/transport/unix"

	"github.com/pkg/errors"
)

const (
	EnvDockerSocket     = "DOCKER_SOCKET"
	EnvDockerHostHeader = "DOCKER_HOST_HEADER"
	EnvPollInterval     = "POLL_INTERVAL"
	EnvInfluxHost       = "INFLUX_HOST"
	EnvInfluxOrg        = "INFLUX_ORG"
	EnvInfluxBucket     = "INFLUX_BUCKET"
	EnvInfluxToken      = "INFLUX_TOKEN"
	EnvSQLitePath       = "SQLITE_PATH"
	EnvContainerFilter  = "CONTAINER_FILTER"
	EnvLogLevel         = "LOG_LEVEL"
)

var ErrMissingValue = errors.New("value is undefined")

type Config struct {
	DockerSocket     string
	DockerHostHeader string
	PollInterval     time.Duration

	Influx influx.Config

	// SQLitePath enables the local sink when set.
	SQLitePath string

	ContainerFilter string
	LogLevel        slog.Level
}

// LookupFunc has the signature of [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

func Default() Config {
	return Config{
		DockerSocket:     unix.DefaultDockerSocket,
		DockerHostHeader: "docker",
		PollInterval:     10 * time.Second,
		LogLevel:         slog.LevelInfo,
	}
}

// FromEnv builds Config from lookup, starting from [Default].
// Empty values are treated as unset.
func FromEnv(lookup LookupFunc) (Config, error) {
	cfg := Default()

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvDockerSocket); ok {
		cfg.DockerSocket = v
	}
	if v, ok := get(EnvDockerHostHeader); ok {
		cfg.DockerHostHeader = v
	}
	if v, ok := get(EnvPollInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "parsing %s", EnvPollInterval)
		}
		cfg.PollInterval = d
	}

	cfg.Influx.Host, _ = get(EnvInfluxHost)
	cfg.Influx.Org, _ = get(EnvInfluxOrg)
	cfg.Influx.Bucket, _ = get(EnvInfluxBucket)
	cfg.Influx.Token, _ = get(EnvInfluxToken)
	cfg.SQLitePath, _ = get(EnvSQLitePath)
	cfg.ContainerFilter, _ = get(EnvContainerFilter)

	if v, ok := get(EnvLogLevel); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, errors.Wrapf(err, "parsing %s", EnvLogLevel)
		}
	}

	return cfg, nil
}

// Load reads the process environment.
func Load() (Config, error) { return FromEnv(os.LookupEnv) }

// InfluxEnabled reports whether any InfluxDB setting is given.
func (c Config) InfluxEnabled() bool {
	return c.Influx != influx.Config{}
}

// Validate checks the settings needed to run the monitor.
// InfluxDB settings are all required unless only the SQLite sink is used.
func (c Config) Validate() error {
	if c.DockerSocket == "" {
		return errors.Wrap(ErrMissingValue, EnvDockerSocket)
	}
	if c.PollInterval <= 0 {
		return errors.Errorf("%s should be positive: %s", EnvPollInterval, c.PollInterval)
	}

	if c.SQLitePath != "" && !c.InfluxEnabled() {
		return nil
	}

	required := []struct{ key, value string }{
		{EnvInfluxHost, c.Influx.Host},
		{EnvInfluxOrg, c.Influx.Org},
		{EnvInfluxBucket, c.Influx.Bucket},
		{EnvInfluxToken, c.Influx.Token},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.Wrap(ErrMissingValue, r.key)
		}
	}

	return nil
}
