/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

/*
Package message implements the framed binary message exchanged between the client and a server.

A message is a type code followed by an ordered list of parts. Each part is raw bytes with a
single isObject flag; strings and integers are carried as non-object parts and objects are
serialized by a [Codec]. The layout on the wire, all integers big endian, is:

	header: [int32 type][int32 payloadLen][int32 numParts][int32 transactionID][byte flags]
	part:   [int32 len][byte isObject][len bytes]

A receiver distinguishes a string part from an object part only by the isObject flag, which is
what [Message.AddStringOrObjPart] relies on.
*/
package message

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// HeaderLen is the length of the fixed message header.
	HeaderLen = 17

	// PartHeaderLen is the length of the header preceding each part payload.
	PartHeaderLen = 5

	// Integer.MAX_VALUE on Java
	integerMaxValue = 2147483647
)

var (
	// ErrSealed indicates that a part was added to a message that has already been written.
	ErrSealed = errors.New("message: message has been sent and can no longer be modified")

	// ErrShortHeader indicates the stream ended before a complete header was read.
	ErrShortHeader = errors.New("message: short header")

	// ErrTruncated indicates the stream ended in the middle of a part.
	ErrTruncated = errors.New("message: truncated part")

	// ErrPayloadTooLarge indicates a message exceeds the configured limits.
	ErrPayloadTooLarge = errors.New("message: payload too large")

	// ErrTooManyParts indicates a message declares more parts than the configured limits.
	ErrTooManyParts = errors.New("message: too many parts")

	// ErrLengthMismatch indicates the declared payload length does not match the parts read.
	ErrLengthMismatch = errors.New("message: payload length does not match parts")
)

// SerializationError is returned when the payload of a part cannot be encoded or decoded.
type SerializationError struct {
	Part int
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("message: unable to serialize part %d: %v", e.Part, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Limits constrains the memory used when reading a message.
type Limits struct {
	MaxParts        int
	MaxPayloadBytes int
}

// DefaultLimits returns the limits used when none are specified.
func DefaultLimits() Limits {
	return Limits{
		MaxParts:        64 * 1024,
		MaxPayloadBytes: 64 * 1024 * 1024,
	}
}

// withDefaults replaces zero or negative limits with the default ones.
func (l Limits) withDefaults() Limits {
	defaults := DefaultLimits()
	if l.MaxParts <= 0 {
		l.MaxParts = defaults.MaxParts
	}
	if l.MaxPayloadBytes <= 0 {
		l.MaxPayloadBytes = defaults.MaxPayloadBytes
	}
	return l
}

// IsEncodingError returns true if err was raised while encoding a message locally, before
// anything was written to the connection.
func IsEncodingError(err error) bool {
	var serErr *SerializationError
	return errors.As(err, &serErr) || errors.Is(err, ErrPayloadTooLarge) || errors.Is(err, ErrSealed)
}

// Message is one framed wire exchange, either a request or a reply.
//
// Errors raised while adding parts are sticky: the first one is kept and returned from
// [Message.Err] and [Message.Write]. A Message is not safe for concurrent modification.
type Message struct {
	msgType       Type
	transactionID int32
	flags         byte
	parts         []Part
	codec         Codec
	sealed        bool
	err           error
}

// New returns a new Message of the given type using the [DefaultCodec]. The part count hint
// is only used to pre-size the part list.
func New(msgType Type, partCountHint int) *Message {
	return NewWithCodec(msgType, partCountHint, DefaultCodec)
}

// NewWithCodec returns a new Message of the given type that serializes objects with codec.
func NewWithCodec(msgType Type, partCountHint int, codec Codec) *Message {
	if partCountHint < 0 {
		partCountHint = 0
	}
	if codec == nil {
		codec = DefaultCodec
	}
	return &Message{
		msgType: msgType,
		parts:   make([]Part, 0, partCountHint),
		codec:   codec,
	}
}

// Type returns the message-type code.
func (m *Message) Type() Type {
	return m.msgType
}

// TransactionID returns the transaction identifier carried in the header.
func (m *Message) TransactionID() int32 {
	return m.transactionID
}

// SetTransactionID sets the transaction identifier carried in the header.
func (m *Message) SetTransactionID(id int32) {
	m.transactionID = id
}

// Codec returns the codec used for object parts.
func (m *Message) Codec() Codec {
	return m.codec
}

// NumParts returns the number of parts in the message.
func (m *Message) NumParts() int {
	return len(m.parts)
}

// Part returns the part at index i, or nil if i is out of range.
func (m *Message) Part(i int) *Part {
	if i < 0 || i >= len(m.parts) {
		return nil
	}
	return &m.parts[i]
}

// Err returns the first error raised while building the message.
func (m *Message) Err() error {
	return m.err
}

// Sealed returns true once the message has been written.
func (m *Message) Sealed() bool {
	return m.sealed
}

// AddBytesPart appends a raw bytes part. The slice is copied.
func (m *Message) AddBytesPart(b []byte) {
	payload := make([]byte, len(b))
	copy(payload, b)
	m.addPart(Part{kind: KindBytes, payload: payload})
}

// AddStringPart appends a string part.
func (m *Message) AddStringPart(s string) {
	m.addPart(Part{kind: KindString, payload: []byte(s)})
}

// AddIntPart appends a 4 byte integer part.
func (m *Message) AddIntPart(n int32) {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(n))
	m.addPart(Part{kind: KindInt, payload: payload})
}

// AddObjPart appends an object part serialized by the message codec. A nil object is
// serialized as the codec's representation of null.
func (m *Message) AddObjPart(object any) {
	if m.sealed {
		m.setErr(ErrSealed)
		return
	}
	data, err := m.codec.Encode(object)
	if err != nil {
		m.setErr(&SerializationError{Part: len(m.parts), Err: err})
		return
	}
	m.addPart(Part{kind: KindObject, payload: data})
}

// AddStringOrObjPart appends value as a string part if it is a string, otherwise as an
// object part. Receivers apply the same rule by inspecting [Part.IsObject].
func (m *Message) AddStringOrObjPart(value any) {
	if s, ok := value.(string); ok {
		m.AddStringPart(s)
		return
	}
	m.AddObjPart(value)
}

func (m *Message) addPart(p Part) {
	if m.sealed {
		m.setErr(ErrSealed)
		return
	}
	p.codec = m.codec
	m.parts = append(m.parts, p)
}

func (m *Message) setErr(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *Message) payloadLen() int {
	total := 0
	for i := range m.parts {
		total += PartHeaderLen + len(m.parts[i].payload)
	}
	return total
}

// Write encodes the message to w and seals it. A message that recorded an error while being
// built is not written.
func (m *Message) Write(w io.Writer) error {
	if m.err != nil {
		return m.err
	}

	payloadLen := m.payloadLen()
	if payloadLen > integerMaxValue {
		return ErrPayloadTooLarge
	}

	bw := bufio.NewWriterSize(w, HeaderLen+payloadLen)

	var header [HeaderLen]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(m.msgType))
	binary.BigEndian.PutUint32(header[4:8], uint32(payloadLen))
	binary.BigEndian.PutUint32(header[8:12], uint32(len(m.parts)))
	binary.BigEndian.PutUint32(header[12:16], uint32(m.transactionID))
	header[16] = m.flags
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}

	var partHeader [PartHeaderLen]byte
	for i := range m.parts {
		p := &m.parts[i]
		binary.BigEndian.PutUint32(partHeader[0:4], uint32(len(p.payload)))
		partHeader[4] = 0
		if p.IsObject() {
			partHeader[4] = 1
		}
		if _, err := bw.Write(partHeader[:]); err != nil {
			return err
		}
		if _, err := bw.Write(p.payload); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	m.sealed = true
	return nil
}

// Bytes returns the encoded form of the message and seals it.
func (m *Message) Bytes() ([]byte, error) {
	var sb bytesWriter
	if err := m.Write(&sb); err != nil {
		return nil, err
	}
	return sb.buf, nil
}

// Read replaces the type, transaction identifier and parts of m with a message read from r.
// Parts read from the wire are either object parts or raw parts; callers interpret raw parts
// with [Part.AsString] or [Part.AsInt]. Zero fields of limits take their default value.
func (m *Message) Read(r io.Reader, limits Limits) error {
	limits = limits.withDefaults()

	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrShortHeader
		}
		return err
	}

	msgType := Type(int32(binary.BigEndian.Uint32(header[0:4])))
	payloadLen := int(binary.BigEndian.Uint32(header[4:8]))
	numParts := int(binary.BigEndian.Uint32(header[8:12]))
	transactionID := int32(binary.BigEndian.Uint32(header[12:16]))

	if payloadLen < 0 || payloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	if numParts < 0 || numParts > limits.MaxParts {
		return ErrTooManyParts
	}

	parts := make([]Part, 0, numParts)
	remaining := payloadLen
	var partHeader [PartHeaderLen]byte
	for i := 0; i < numParts; i++ {
		if remaining < PartHeaderLen {
			return ErrLengthMismatch
		}
		if _, err := io.ReadFull(r, partHeader[:]); err != nil {
			return ErrTruncated
		}
		partLen := int(binary.BigEndian.Uint32(partHeader[0:4]))
		remaining -= PartHeaderLen
		if partLen < 0 || partLen > remaining {
			return ErrLengthMismatch
		}
		payload := make([]byte, partLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return ErrTruncated
		}
		remaining -= partLen

		kind := KindBytes
		if partHeader[4] != 0 {
			kind = KindObject
		}
		parts = append(parts, Part{kind: kind, payload: payload, codec: m.codec})
	}
	if remaining != 0 {
		return ErrLengthMismatch
	}

	m.msgType = msgType
	m.transactionID = transactionID
	m.flags = header[16]
	m.parts = parts
	m.err = nil
	return nil
}

func (m *Message) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Message{type=%v, transactionID=%d, parts=%d", m.msgType, m.transactionID, len(m.parts)))
	for i := range m.parts {
		sb.WriteString(fmt.Sprintf(", part[%d]=%v", i, &m.parts[i]))
	}
	sb.WriteString("}")
	return sb.String()
}

type bytesWriter struct {
	buf []byte
}

func (b *bytesWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}
