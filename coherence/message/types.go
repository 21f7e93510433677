/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package message

import "fmt"

// Type is the message-type code carried in the header of every framed message.
type Type int32

const (
	// Invalid is the type of a message that has not been read or assigned a type.
	Invalid Type = -1

	// Exception is returned by the server when the request failed with an exception.
	// The first part carries the serialized exception.
	Exception Type = 2

	// Reply is a plain acknowledgement with no payload of interest.
	Reply Type = 6

	// ExecuteRegionFunction requests the execution of a function against a region.
	ExecuteRegionFunction Type = 59

	// ExecuteRegionFunctionResult carries a (partial) result of a region function execution.
	ExecuteRegionFunctionResult Type = 60

	// ExecuteRegionFunctionError is returned when the server could not execute the region function.
	ExecuteRegionFunctionError Type = 61
)

var typeNames = map[Type]string{
	Invalid:                     "INVALID",
	Exception:                   "EXCEPTION",
	Reply:                       "REPLY",
	ExecuteRegionFunction:       "EXECUTE_REGION_FUNCTION",
	ExecuteRegionFunctionResult: "EXECUTE_REGION_FUNCTION_RESULT",
	ExecuteRegionFunctionError:  "EXECUTE_REGION_FUNCTION_ERROR",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int32(t))
}
