/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/oracle/coherence-go-functions/coherence/message"
	"github.com/rs/zerolog"
)

// test helpers

type testFunction struct {
	FunctionID       string `json:"functionId"`
	HA               bool   `json:"ha"`
	Result           bool   `json:"result"`
	OptimizeWrites   bool   `json:"optimizeWrites"`
	SerializationReq bool   `json:"-"`
}

func (f testFunction) ID() string                  { return f.FunctionID }
func (f testFunction) IsHA() bool                  { return f.HA }
func (f testFunction) HasResult() bool             { return f.Result }
func (f testFunction) OptimizeForWrite() bool      { return f.OptimizeWrites }
func (f testFunction) RequiresSerialization() bool { return f.SerializationReq }

type statsEvent struct {
	name     string
	start    int64
	timedOut bool
	failed   bool
}

// recordingStats records every hook invocation in order.
type recordingStats struct {
	mutex  sync.Mutex
	next   int64
	events []statsEvent
}

func (s *recordingStats) StartExecuteFunction() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.next++
	s.events = append(s.events, statsEvent{name: "start", start: s.next})
	return s.next
}

func (s *recordingStats) EndExecuteFunctionSend(start int64, failed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.events = append(s.events, statsEvent{name: "endSend", start: start, failed: failed})
}

func (s *recordingStats) EndExecuteFunction(start int64, timedOut bool, failed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.events = append(s.events, statsEvent{name: "end", start: start, timedOut: timedOut, failed: failed})
}

func (s *recordingStats) names() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	names := make([]string, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.name)
	}
	return names
}

func (s *recordingStats) last() statsEvent {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.events[len(s.events)-1]
}

// fakeConnection replies with a canned message.
type fakeConnection struct {
	server  string
	sendErr error
	recvErr error
	reply   *message.Message
	sent    []*message.Message
	closed  bool
}

func (c *fakeConnection) ID() string     { return "fake-" + c.server }
func (c *fakeConnection) Server() string { return c.server }

func (c *fakeConnection) Send(_ context.Context, msg *message.Message) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	if _, err := msg.Bytes(); err != nil {
		return err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConnection) Receive(_ context.Context, msg *message.Message) error {
	if c.recvErr != nil {
		return c.recvErr
	}
	if c.reply == nil {
		return io.EOF
	}
	data, err := c.reply.Bytes()
	if err != nil {
		return err
	}
	return msg.Read(bytes.NewReader(data), message.DefaultLimits())
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

// newTestLogger returns a logger that writes JSON lines at all levels to buf.
func newTestLogger(buf *bytes.Buffer) *zerolog.Logger {
	logger := newLogger(buf, ALL)
	return &logger
}

func newReply(msgType message.Type, parts ...any) *message.Message {
	msg := message.New(msgType, len(parts))
	for _, p := range parts {
		msg.AddObjPart(p)
	}
	return msg
}

// decodeRequest encodes msg and reads it back as a server would.
func decodeRequest(t *testing.T, msg *message.Message) *message.Message {
	t.Helper()
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("unable to encode request: %v", err)
	}
	decoded := message.New(message.Invalid, 0)
	if err = decoded.Read(bytes.NewReader(data), message.DefaultLimits()); err != nil {
		t.Fatalf("unable to decode request: %v", err)
	}
	return decoded
}

// requestHandler returns the reply to a request, or nil to close the connection.
type requestHandler func(request *message.Message) *message.Message

// fakeServer is a loopback TCP server answering framed messages.
type fakeServer struct {
	listener net.Listener
	handler  requestHandler
	wg       sync.WaitGroup
	mutex    sync.Mutex
	conns    []net.Conn
	requests []*message.Message
}

func startFakeServer(t *testing.T, handler requestHandler) *fakeServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to listen: %v", err)
	}

	s := &fakeServer{listener: listener, handler: handler}
	s.wg.Add(1)
	go s.accept()
	t.Cleanup(s.stop)
	return s
}

func (s *fakeServer) addr() string {
	return s.listener.Addr().String()
}

func (s *fakeServer) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mutex.Lock()
		s.conns = append(s.conns, conn)
		s.mutex.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *fakeServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		request := message.New(message.Invalid, 0)
		if err := request.Read(reader, message.DefaultLimits()); err != nil {
			return
		}
		s.mutex.Lock()
		s.requests = append(s.requests, request)
		s.mutex.Unlock()

		reply := s.handler(request)
		if reply == nil {
			return
		}
		if err := reply.Write(conn); err != nil {
			return
		}
	}
}

func (s *fakeServer) received() []*message.Message {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]*message.Message{}, s.requests...)
}

func (s *fakeServer) stop() {
	_ = s.listener.Close()
	s.mutex.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mutex.Unlock()
	s.wg.Wait()
}

// unusedAddress returns a loopback address nothing listens on.
func unusedAddress(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()
	return addr
}

func replyWith(msgType message.Type, parts ...any) requestHandler {
	return func(_ *message.Message) *message.Message {
		return newReply(msgType, parts...)
	}
}

var errTestSend = errors.New("broken pipe")

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func routingKeys(t *testing.T, request *message.Message) []any {
	t.Helper()
	count, err := request.Part(6).AsInt()
	if err != nil {
		t.Fatalf("routing key count: %v", err)
	}
	keys := make([]any, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := request.Part(7 + i).AsStringOrObject()
		if err != nil {
			t.Fatalf("routing key %d: %v", i, err)
		}
		keys = append(keys, v)
	}
	return keys
}
