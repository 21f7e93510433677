/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oracle/coherence-go-functions/coherence/message"
)

// Connection is a connection to one server. The framing has no request identifiers, so a
// Connection carries one attempt at a time and must not be shared by concurrent operations.
type Connection interface {
	// ID returns the unique identifier of the connection.
	ID() string

	// Server returns the address of the server.
	Server() string

	// Send writes msg to the server.
	Send(ctx context.Context, msg *message.Message) error

	// Receive reads the next message from the server into msg.
	Receive(ctx context.Context, msg *message.Message) error

	// Close closes the connection.
	Close() error
}

// connectionFactory creates a new connection to a server.
type connectionFactory func(ctx context.Context, server string, opts *PoolOptions) (Connection, error)

// tcpConnection is a Connection over a plain TCP socket.
type tcpConnection struct {
	id          uuid.UUID
	server      string
	conn        net.Conn
	reader      *bufio.Reader
	readTimeout time.Duration
	limits      message.Limits
	closeOnce   sync.Once
	closeErr    error
}

func newTCPConnection(ctx context.Context, server string, opts *PoolOptions) (Connection, error) {
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return nil, err
	}

	return &tcpConnection{
		id:          uuid.New(),
		server:      server,
		conn:        conn,
		reader:      bufio.NewReader(conn),
		readTimeout: opts.ReadTimeout,
		limits:      opts.Limits,
	}, nil
}

func (c *tcpConnection) ID() string {
	return c.id.String()
}

func (c *tcpConnection) Server() string {
	return c.server
}

func (c *tcpConnection) Send(ctx context.Context, msg *message.Message) error {
	if err := c.conn.SetWriteDeadline(deadline(ctx, c.readTimeout)); err != nil {
		return err
	}
	return msg.Write(c.conn)
}

func (c *tcpConnection) Receive(ctx context.Context, msg *message.Message) error {
	if err := c.conn.SetReadDeadline(deadline(ctx, c.readTimeout)); err != nil {
		return err
	}
	return msg.Read(c.reader, c.limits)
}

func (c *tcpConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *tcpConnection) String() string {
	return fmt.Sprintf("tcpConnection{id=%s, server=%s}", c.id, c.server)
}

// deadline returns the earlier of the context deadline and now plus timeout. A zero timeout
// and no context deadline means no deadline.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}
