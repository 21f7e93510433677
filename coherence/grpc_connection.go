/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oracle/coherence-go-functions/coherence/message"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	framedMessageServiceName = "coherence.functions.v1.FramedMessageService"
	framedMessageExchange    = "Exchange"
	framedMessageMethod      = "/" + framedMessageServiceName + "/" + framedMessageExchange
)

var framedMessageStreamDesc = grpc.StreamDesc{
	StreamName:    framedMessageExchange,
	ServerStreams: true,
	ClientStreams: true,
}

// grpcConnection is a Connection over a bidirectional gRPC stream. Each gRPC message is a
// BytesValue holding one encoded framed message.
type grpcConnection struct {
	id          uuid.UUID
	server      string
	conn        *grpc.ClientConn
	stream      grpc.ClientStream
	cancel      context.CancelFunc
	readTimeout time.Duration
	limits      message.Limits
	closeOnce   sync.Once
}

func newGRPCConnection(ctx context.Context, server string, opts *PoolOptions) (Connection, error) {
	dialOptions := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	dialOptions = append(dialOptions, opts.GRPCDialOptions...)

	dialCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancelDial context.CancelFunc
		dialCtx, cancelDial = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancelDial()
	}

	conn, err := grpc.DialContext(dialCtx, server, dialOptions...)
	if err != nil {
		return nil, err
	}

	// the stream outlives the context of the operation that created it
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := conn.NewStream(streamCtx, &framedMessageStreamDesc, framedMessageMethod)
	if err != nil {
		cancel()
		_ = conn.Close()
		return nil, err
	}

	return &grpcConnection{
		id:          uuid.New(),
		server:      server,
		conn:        conn,
		stream:      stream,
		cancel:      cancel,
		readTimeout: opts.ReadTimeout,
		limits:      opts.Limits,
	}, nil
}

func (c *grpcConnection) ID() string {
	return c.id.String()
}

func (c *grpcConnection) Server() string {
	return c.server
}

// Send writes msg as one frame. SendMsg blocks under flow control, so it is bounded by the
// same deadline as Receive.
func (c *grpcConnection) Send(ctx context.Context, msg *message.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return c.await(ctx, func() error {
		return c.stream.SendMsg(wrapperspb.Bytes(data))
	})
}

// Receive waits for the next message.
func (c *grpcConnection) Receive(ctx context.Context, msg *message.Message) error {
	var frame wrapperspb.BytesValue
	if err := c.await(ctx, func() error {
		return c.stream.RecvMsg(&frame)
	}); err != nil {
		return err
	}
	return msg.Read(bytes.NewReader(frame.GetValue()), c.limits)
}

// await runs a blocking stream call until it returns or the deadline from ctx and the read
// timeout expires. A stream cannot have a per-message deadline, so on timeout the stream is
// cancelled and the connection is no longer usable.
func (c *grpcConnection) await(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- call()
	}()

	var timeout <-chan time.Time
	if d := deadline(ctx, c.readTimeout); !d.IsZero() {
		timer := time.NewTimer(time.Until(d))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		return err
	case <-timeout:
		c.cancel()
		<-done
		return context.DeadlineExceeded
	}
}

func (c *grpcConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.stream.CloseSend()
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

func (c *grpcConnection) String() string {
	return fmt.Sprintf("grpcConnection{id=%s, server=%s}", c.id, c.server)
}
