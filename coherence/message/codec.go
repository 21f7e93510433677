/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package message

import (
	"encoding/json"
	"fmt"
)

const (
	jsonSerializationPrefix = 21
)

var _ Codec = JSONCodec{}

// Codec defines how object parts are serialized and de-serialized. The wire format of an
// object is opaque to the framing layer.
type Codec interface {
	Encode(object any) ([]byte, error)
	Decode(data []byte, out any) error
	Format() string
}

// DefaultCodec is the codec used by messages created with New.
var DefaultCodec Codec = JSONCodec{}

// JSONCodec serializes objects using JSON, prefixed with a single format byte.
type JSONCodec struct{}

// Encode serializes object and returns the []byte representation.
func (JSONCodec) Encode(object any) ([]byte, error) {
	data, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}

	finalData := make([]byte, 1, len(data)+1)
	finalData[0] = jsonSerializationPrefix
	return append(finalData, data...), nil
}

// Decode de-serializes data into out, which must be a pointer.
func (JSONCodec) Decode(data []byte, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("cannot decode empty object payload")
	}
	if data[0] != jsonSerializationPrefix {
		return fmt.Errorf("invalid serialization prefix %v", data[0])
	}
	return json.Unmarshal(data[1:], out)
}

func (JSONCodec) Format() string {
	return "json"
}
