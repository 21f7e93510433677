/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Kind describes how a part was added. Parts read from the wire are either KindObject or
// KindBytes as only the isObject flag is transmitted.
type Kind uint8

const (
	KindBytes Kind = iota
	KindString
	KindInt
	KindObject
)

var (
	// ErrNotObject is returned when an object is requested from a non-object part.
	ErrNotObject = errors.New("message: part is not an object")

	// ErrIsObject is returned when a raw value is requested from an object part.
	ErrIsObject = errors.New("message: part is an object")
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Part is one typed field of a [Message]. A part is immutable once added.
type Part struct {
	kind    Kind
	payload []byte
	codec   Codec
}

// Kind returns the kind of the part.
func (p *Part) Kind() Kind {
	return p.kind
}

// IsObject returns true if the payload was produced by the object codec.
func (p *Part) IsObject() bool {
	return p.kind == KindObject
}

// Len returns the length of the payload.
func (p *Part) Len() int {
	return len(p.payload)
}

// Bytes returns a copy of the raw payload.
func (p *Part) Bytes() []byte {
	b := make([]byte, len(p.payload))
	copy(b, p.payload)
	return b
}

// AsString returns the payload of a non-object part as a string.
func (p *Part) AsString() (string, error) {
	if p.IsObject() {
		return "", ErrIsObject
	}
	if !utf8.Valid(p.payload) {
		return "", fmt.Errorf("message: string part is not valid UTF-8")
	}
	return string(p.payload), nil
}

// AsInt returns the payload of a 4 byte non-object part as an int32.
func (p *Part) AsInt() (int32, error) {
	if p.IsObject() {
		return 0, ErrIsObject
	}
	if len(p.payload) != 4 {
		return 0, fmt.Errorf("message: invalid int part length: %d", len(p.payload))
	}
	return int32(binary.BigEndian.Uint32(p.payload)), nil
}

// AsObject de-serializes an object part into a generic value.
func (p *Part) AsObject() (any, error) {
	var v any
	if err := p.DecodeObject(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeObject de-serializes an object part into out, which must be a pointer.
func (p *Part) DecodeObject(out any) error {
	if !p.IsObject() {
		return ErrNotObject
	}
	codec := p.codec
	if codec == nil {
		codec = DefaultCodec
	}
	if err := codec.Decode(p.payload, out); err != nil {
		return &SerializationError{Part: -1, Err: err}
	}
	return nil
}

// AsStringOrObject reverses [Message.AddStringOrObjPart]: a non-object part is returned as a
// string and an object part is de-serialized.
func (p *Part) AsStringOrObject() (any, error) {
	if p.IsObject() {
		return p.AsObject()
	}
	return p.AsString()
}

func (p *Part) String() string {
	return fmt.Sprintf("Part{kind=%v, len=%d}", p.kind, len(p.payload))
}
