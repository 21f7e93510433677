/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/oracle/coherence-go-functions/coherence/message"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

const (
	TransportTCP  = "tcp"
	TransportGRPC = "grpc"

	defaultRetryAttempts      = 3
	defaultConnectTimeout     = 5 * time.Second
	defaultDenyListTTL        = 10 * time.Second
	defaultMaxIdleConnections = 8
)

// PoolOptions holds the pool attributes like servers, transport and timeouts.
type PoolOptions struct {
	Servers            []string
	Transport          string
	ReadTimeout        time.Duration
	ConnectTimeout     time.Duration
	RetryAttempts      int
	DenyListTTL        time.Duration
	MaxIdleConnections int
	Limits             message.Limits
	GRPCDialOptions    []grpc.DialOption
	Logger             *zerolog.Logger
	Stats              ConnectionStats
}

// PoolConfig is the TOML representation of the pool options.
//
// Example:
//
//	servers = ["host1:40404", "host2:40404"]
//	transport = "tcp"
//	read_timeout = "10s"
//	retry_attempts = 3
//	log_level = "WARNING"
type PoolConfig struct {
	Servers            []string `toml:"servers"`
	Transport          string   `toml:"transport"`
	ReadTimeout        string   `toml:"read_timeout"`
	ConnectTimeout     string   `toml:"connect_timeout"`
	RetryAttempts      int      `toml:"retry_attempts"`
	DenyListTTL        string   `toml:"deny_list_ttl"`
	MaxIdleConnections int      `toml:"max_idle_connections"`
	LogLevel           string   `toml:"log_level"`
}

// LoadPoolConfig reads a PoolConfig from a TOML file.
func LoadPoolConfig(path string) (PoolConfig, error) {
	var cfg PoolConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return PoolConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Options converts the configuration into pool options. Empty values are left unset so that
// the defaults and environment apply.
func (c PoolConfig) Options() ([]func(options *PoolOptions), error) {
	options := make([]func(options *PoolOptions), 0)

	if len(c.Servers) > 0 {
		options = append(options, WithServers(c.Servers...))
	}
	if c.Transport != "" {
		options = append(options, WithTransport(c.Transport))
	}
	if c.RetryAttempts > 0 {
		options = append(options, WithRetryAttempts(c.RetryAttempts))
	}
	if c.MaxIdleConnections > 0 {
		options = append(options, WithMaxIdleConnections(c.MaxIdleConnections))
	}

	durations := []struct {
		name  string
		value string
		apply func(time.Duration) func(options *PoolOptions)
	}{
		{"read_timeout", c.ReadTimeout, WithReadTimeout},
		{"connect_timeout", c.ConnectTimeout, WithConnectTimeout},
		{"deny_list_ttl", c.DenyListTTL, WithDenyListTTL},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		options = append(options, d.apply(v))
	}

	if c.LogLevel != "" {
		level, ok := parseLogLevel(c.LogLevel)
		if !ok {
			return nil, fmt.Errorf("invalid log_level %q", c.LogLevel)
		}
		logger := newLogger(zerolog.ConsoleWriter{Out: defaultLogWriter(), TimeFormat: time.RFC3339}, level)
		options = append(options, WithLogger(logger))
	}

	return options, nil
}

// WithServers returns a function to set the server addresses for a pool.
func WithServers(servers ...string) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.Servers = append([]string{}, servers...)
	}
}

// WithTransport returns a function to set the transport, either "tcp" or "grpc".
func WithTransport(transport string) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.Transport = strings.ToLower(transport)
	}
}

// WithReadTimeout returns a function to set the time to wait for a reply.
func WithReadTimeout(timeout time.Duration) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.ReadTimeout = timeout
	}
}

// WithConnectTimeout returns a function to set the time to wait for a connection.
func WithConnectTimeout(timeout time.Duration) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.ConnectTimeout = timeout
	}
}

// WithRetryAttempts returns a function to set the number of servers tried before giving up.
func WithRetryAttempts(attempts int) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.RetryAttempts = attempts
	}
}

// WithDenyListTTL returns a function to set how long a failed server is excluded.
func WithDenyListTTL(ttl time.Duration) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.DenyListTTL = ttl
	}
}

// WithMaxIdleConnections returns a function to set the number of idle connections kept per server.
func WithMaxIdleConnections(n int) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.MaxIdleConnections = n
	}
}

// WithLimits returns a function to set the limits applied when reading replies.
func WithLimits(limits message.Limits) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.Limits = limits
	}
}

// WithGRPCDialOptions returns a function to add gRPC dial options used by the "grpc" transport.
func WithGRPCDialOptions(dialOptions ...grpc.DialOption) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.GRPCDialOptions = append(o.GRPCDialOptions, dialOptions...)
	}
}

// WithLogger returns a function to set the logger.
func WithLogger(logger zerolog.Logger) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.Logger = &logger
	}
}

// WithStats returns a function to set the statistics sink.
func WithStats(stats ConnectionStats) func(options *PoolOptions) {
	return func(o *PoolOptions) {
		o.Stats = stats
	}
}

// defaultPoolOptions returns the options used before any are applied, taking the servers,
// request timeout and retry attempts from the environment.
func defaultPoolOptions() (*PoolOptions, error) {
	readTimeout, err := getTimeoutValue(envRequestTimeout, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	retries, err := getIntValueFromEnvVarOrDefault(envRetryAttempts, defaultRetryAttempts)
	if err != nil {
		return nil, err
	}

	return &PoolOptions{
		Servers:            splitServers(getStringValueFromEnvVarOrDefault(envHostName, defaultServerAddress)),
		Transport:          TransportTCP,
		ReadTimeout:        readTimeout,
		ConnectTimeout:     defaultConnectTimeout,
		RetryAttempts:      retries,
		DenyListTTL:        defaultDenyListTTL,
		MaxIdleConnections: defaultMaxIdleConnections,
		Limits:             message.DefaultLimits(),
	}, nil
}

func (o *PoolOptions) validate() error {
	if len(o.Servers) == 0 {
		return fmt.Errorf("at least one server address is required")
	}
	if o.Transport != TransportTCP && o.Transport != TransportGRPC {
		return ErrUnknownTransport
	}
	if o.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", o.RetryAttempts)
	}
	if o.DenyListTTL <= 0 {
		return fmt.Errorf("deny list TTL must be positive, got %v", o.DenyListTTL)
	}
	return nil
}

func (o *PoolOptions) String() string {
	return fmt.Sprintf("PoolOptions{servers=%v, transport=%s, readTimeout=%v, connectTimeout=%v, retryAttempts=%d, denyListTTL=%v, maxIdle=%d}",
		o.Servers, o.Transport, o.ReadTimeout, o.ConnectTimeout, o.RetryAttempts, o.DenyListTTL, o.MaxIdleConnections)
}
