// Package docker reads container information from the Docker Engine API.
package docker

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"container-monitor/application/http"
	"container-monitor/transport"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultHost is sent as Host header. The daemon ignores it on a unix socket.
const DefaultHost = "docker"

var ErrInvalidID = errors.New("container id is invalid")

type Container struct {
	ID     string   `json:"Id"`
	Names  []string `json:"Names"`
	Image  string   `json:"Image"`
	State  string   `json:"State"`
	Status string   `json:"Status"`
}

// Name returns the first name without the leading slash.
// It is empty if the container has no name.
func (c Container) Name() string {
	if len(c.Names) == 0 {
		return ""
	}
	return strings.TrimPrefix(c.Names[0], "/")
}

type MemoryStats struct {
	Usage uint64 `json:"usage"`
	Limit uint64 `json:"limit"`
}

type Stats struct {
	Read        string      `json:"read"`
	MemoryStats MemoryStats `json:"memory_stats"`
}

// Client issues one request per connection.
type Client struct {
	dialer transport.Dialer
	host   string

	logger *slog.Logger
	opts   http.Options
}

func NewClient(dialer transport.Dialer, host string, logger *slog.Logger, opts http.Options) *Client {
	if host == "" {
		host = DefaultHost
	}

	return &Client{
		dialer: dialer,
		host:   host,
		logger: logger,
		opts:   opts,
	}
}

// Get dials a new connection and returns the body of GET target.
func (c *Client) Get(ctx context.Context, target string) ([]byte, error) {
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "dialing docker daemon")
	}

	// Requester owns conn from here and closes it.
	return http.NewRequester(conn, c.host, c.logger, c.opts).Get(ctx, target)
}

// Containers lists running containers.
func (c *Client) Containers(ctx context.Context) ([]Container, error) {
	containers := make([]Container, 0)
	if err := c.getJSON(ctx, "/containers/json", &containers); err != nil {
		return nil, errors.Wrap(err, "listing containers")
	}
	return containers, nil
}

// ContainerStats takes a single stats sample of the container.
func (c *Client) ContainerStats(ctx context.Context, id string) (Stats, error) {
	if id == "" {
		return Stats{}, errors.Wrap(ErrInvalidID, "id is empty")
	}

	target := "/containers/" + url.PathEscape(id) + "/stats?stream=false"

	var stats Stats
	if err := c.getJSON(ctx, target, &stats); err != nil {
		return Stats{}, errors.Wrapf(err, "getting stats of container %s", id)
	}
	return stats, nil
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	body, err := c.Get(ctx, target)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "decoding json body")
	}
	return nil
}
