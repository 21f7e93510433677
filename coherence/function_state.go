/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

// Bits of the function state byte.
const (
	FunctionStateOptimizeForWrite byte = 0x01
	FunctionStateHasResult        byte = 0x02
	FunctionStateHA               byte = 0x04
)

// Bits of the execution flags byte.
const (
	FlagBucketSetAsFilter byte = 0x01
	FlagIsReExecute       byte = 0x02
)

// FunctionState packs the execution semantics of a function into a single byte:
// bit 0 optimizeForWrite, bit 1 hasResult, bit 2 isHA. All other bits are zero.
func FunctionState(isHA, hasResult, optimizeForWrite bool) byte {
	var state byte
	if optimizeForWrite {
		state |= FunctionStateOptimizeForWrite
	}
	if hasResult {
		state |= FunctionStateHasResult
	}
	if isHA {
		state |= FunctionStateHA
	}
	return state
}

// ExecutionFlags packs the structural flags of a function execution into a single byte:
// bit 0 bucketSetAsFilter, bit 1 isReExecute. All other bits are zero.
func ExecutionFlags(bucketSetAsFilter, isReExecute bool) byte {
	var flags byte
	if bucketSetAsFilter {
		flags |= FlagBucketSetAsFilter
	}
	if isReExecute {
		flags |= FlagIsReExecute
	}
	return flags
}
