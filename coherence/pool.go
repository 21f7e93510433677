/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ReneKroon/ttlcache"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExecutablePool runs operations against servers, retrying on other servers when a
// connection fails.
type ExecutablePool interface {
	// Execute runs op, returning the result of the first attempt that did not fail with a
	// connection error.
	Execute(ctx context.Context, op Op) (any, error)

	// Logger returns the logger operations created for this pool log to.
	Logger() *zerolog.Logger
}

var _ ExecutablePool = &ConnectionPool{}

// ConnectionPool is an ExecutablePool that keeps idle connections to a fixed list of servers.
// Servers are tried round-robin and a server whose connection failed is excluded for a
// while. A ConnectionPool is safe for concurrent use; each attempt leases its own connection.
type ConnectionPool struct {
	poolID   uuid.UUID
	opts     *PoolOptions
	factory  connectionFactory
	logger   *zerolog.Logger
	stats    ConnectionStats
	denyList *ttlcache.Cache
	mutex    sync.Mutex
	idle     map[string][]Connection
	next     int
	closed   bool
}

// NewConnectionPool creates a new ConnectionPool with the specified options.
//
// Example: create a pool to two servers using the gRPC transport
//
//	pool, err := coherence.NewConnectionPool(
//	    coherence.WithServers("host1:40404", "host2:40404"),
//	    coherence.WithTransport(coherence.TransportGRPC))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
// The servers can also be set using the environment variable COHERENCE_SERVER_ADDRESS as a
// comma separated list, and the reply timeout in milliseconds using
// COHERENCE_CLIENT_REQUEST_TIMEOUT. Connections are created lazily.
func NewConnectionPool(options ...func(options *PoolOptions)) (*ConnectionPool, error) {
	opts, err := defaultPoolOptions()
	if err != nil {
		return nil, err
	}

	for _, f := range options {
		f(opts)
	}

	if err = opts.validate(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		logger := newDefaultLogger()
		opts.Logger = &logger
	}
	if opts.Stats == nil {
		opts.Stats = NewPoolStats()
	}

	factory := newTCPConnection
	if opts.Transport == TransportGRPC {
		factory = newGRPCConnection
	}

	return newConnectionPool(opts, factory), nil
}

// NewConnectionPoolFromFile creates a new ConnectionPool configured from a TOML file.
// Options passed explicitly are applied after the file.
func NewConnectionPoolFromFile(path string, options ...func(options *PoolOptions)) (*ConnectionPool, error) {
	cfg, err := LoadPoolConfig(path)
	if err != nil {
		return nil, err
	}
	fileOptions, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return NewConnectionPool(append(fileOptions, options...)...)
}

func newConnectionPool(opts *PoolOptions, factory connectionFactory) *ConnectionPool {
	denyList := ttlcache.NewCache()
	denyList.SetTTL(opts.DenyListTTL)

	pool := &ConnectionPool{
		poolID:   uuid.New(),
		opts:     opts,
		factory:  factory,
		logger:   opts.Logger,
		stats:    opts.Stats,
		denyList: denyList,
		idle:     make(map[string][]Connection, len(opts.Servers)),
	}
	pool.logger.Debug().Str("pool", pool.ID()).Msgf("created pool %v", opts)
	return pool
}

// ID returns the identifier of the pool.
func (p *ConnectionPool) ID() string {
	return p.poolID.String()
}

// Logger returns the logger of the pool.
func (p *ConnectionPool) Logger() *zerolog.Logger {
	return p.logger
}

// Stats returns the statistics sink of the pool.
func (p *ConnectionPool) Stats() ConnectionStats {
	return p.stats
}

// GetOptions returns the options the pool was created with.
func (p *ConnectionPool) GetOptions() *PoolOptions {
	return p.opts
}

// Execute runs op on up to RetryAttempts servers. A *ConnectionError moves on to the next
// server, a *ProtocolViolationError aborts immediately and any other error is returned as is.
// When every attempt failed the error wraps ErrNoAvailableServers and the last failure.
func (p *ConnectionPool) Execute(ctx context.Context, op Op) (any, error) {
	var (
		lastErr error
		tried   = make(map[string]bool, len(p.opts.Servers))
	)

	for i := 0; i < p.opts.RetryAttempts; i++ {
		server, err := p.selectServer(tried)
		if err != nil {
			if lastErr == nil {
				return nil, err
			}
			break
		}
		tried[server] = true

		conn, err := p.acquire(ctx, server)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil, err
			}
			lastErr = &ConnectionError{Server: server, TimedOut: isTimeout(err), Err: err}
			p.deny(server, lastErr)
			continue
		}

		result, err := executeAttempt(ctx, conn, op, p.stats)
		if err == nil {
			p.release(conn)
			return result, nil
		}

		var connErr *ConnectionError
		switch {
		case errors.As(err, &connErr):
			p.discard(conn)
			p.deny(server, err)
			lastErr = err
		case isProtocolViolation(err):
			// the stream can no longer be trusted
			p.discard(conn)
			p.logger.Error().Err(err).Str("server", server).Msg("aborting operation")
			return nil, err
		default:
			p.release(conn)
			return nil, err
		}
	}

	if lastErr == nil {
		return nil, ErrNoAvailableServers
	}
	return nil, fmt.Errorf("%w: %w", ErrNoAvailableServers, lastErr)
}

// selectServer returns the next server round-robin that has not been tried, preferring
// servers that are not on the deny list.
func (p *ConnectionPool) selectServer(tried map[string]bool) (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return "", ErrClosed
	}

	servers := p.opts.Servers
	fallback := ""
	for i := 0; i < len(servers); i++ {
		server := servers[(p.next+i)%len(servers)]
		if tried[server] {
			continue
		}
		if p.isDenied(server) {
			if fallback == "" {
				fallback = server
			}
			continue
		}
		p.next = (p.next + i + 1) % len(servers)
		return server, nil
	}

	if fallback != "" {
		return fallback, nil
	}
	return "", ErrNoAvailableServers
}

func (p *ConnectionPool) isDenied(server string) bool {
	v, ok := p.denyList.Get(server)
	if !ok {
		return false
	}
	until, ok := v.(time.Time)
	return ok && time.Now().Before(until)
}

func (p *ConnectionPool) deny(server string, err error) {
	p.denyList.Set(server, time.Now().Add(p.opts.DenyListTTL))
	p.logger.Warn().Err(err).Str("pool", p.ID()).Msg(localized(msgServerDenied, server, p.opts.DenyListTTL))
}

// acquire leases an idle connection to server or creates a new one.
func (p *ConnectionPool) acquire(ctx context.Context, server string) (Connection, error) {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return nil, ErrClosed
	}
	if idle := p.idle[server]; len(idle) > 0 {
		conn := idle[len(idle)-1]
		p.idle[server] = idle[:len(idle)-1]
		p.mutex.Unlock()
		return conn, nil
	}
	p.mutex.Unlock()

	conn, err := p.factory(ctx, server, p.opts)
	if err != nil {
		return nil, err
	}
	p.logger.Trace().Str("pool", p.ID()).Msgf("created connection %v", conn)
	return conn, nil
}

// release returns a healthy connection to the idle list.
func (p *ConnectionPool) release(conn Connection) {
	p.mutex.Lock()
	server := conn.Server()
	if !p.closed && len(p.idle[server]) < p.opts.MaxIdleConnections {
		p.idle[server] = append(p.idle[server], conn)
		p.mutex.Unlock()
		return
	}
	p.mutex.Unlock()
	p.discard(conn)
}

func (p *ConnectionPool) discard(conn Connection) {
	if err := conn.Close(); err != nil {
		p.logger.Debug().Err(err).Msgf("unable to close connection %v", conn)
	}
}

// Close closes all idle connections. Connections in use are closed when they are released.
func (p *ConnectionPool) Close() {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = make(map[string][]Connection)
	p.mutex.Unlock()

	for _, conns := range idle {
		for _, conn := range conns {
			p.discard(conn)
		}
	}
	p.denyList.Close()
	p.logger.Debug().Str("pool", p.ID()).Msg("closed pool")
}

func (p *ConnectionPool) String() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	idle := 0
	for _, conns := range p.idle {
		idle += len(conns)
	}
	return fmt.Sprintf("ConnectionPool{id=%s, closed=%v, servers=%v, transport=%s, idle=%d}",
		p.poolID, p.closed, p.opts.Servers, p.opts.Transport, idle)
}
