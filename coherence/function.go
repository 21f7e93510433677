/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"fmt"
	"reflect"
)

// Function describes a function registered on, or transported to, the server.
type Function interface {
	ID() string
	HasResult() bool
	IsHA() bool
	OptimizeForWrite() bool
}

// TransportableFunction is implemented by a Function that must be sent to the server in
// serialized form instead of by its id.
type TransportableFunction interface {
	Function
	RequiresSerialization() bool
}

// MemberMappedArgument supplies a different argument to the function on specific members,
// falling back to DefaultArgument on all others.
type MemberMappedArgument struct {
	DefaultArgument any            `json:"defaultArgument"`
	MemberToArgMap  map[string]any `json:"memberToArgMap,omitempty"`
}

// NewMemberMappedArgument returns a new MemberMappedArgument with the default argument and
// a copy of the per-member arguments.
func NewMemberMappedArgument(defaultArgument any, memberArgs map[string]any) *MemberMappedArgument {
	m := &MemberMappedArgument{DefaultArgument: defaultArgument, MemberToArgMap: make(map[string]any, len(memberArgs))}
	for k, v := range memberArgs {
		m.MemberToArgMap[k] = v
	}
	return m
}

// ArgumentForMember returns the argument to use on memberID.
func (m *MemberMappedArgument) ArgumentForMember(memberID string) any {
	if v, ok := m.MemberToArgMap[memberID]; ok {
		return v
	}
	return m.DefaultArgument
}

// ServerRegionFunctionExecutor holds what is sent with a region function execution apart
// from the function itself. It is immutable once created.
type ServerRegionFunctionExecutor struct {
	arguments            any
	memberMappedArgument *MemberMappedArgument
	filter               []any
	executeOnBucketSet   bool
	fnSerializationReqd  bool
}

// NewServerRegionFunctionExecutor returns a new executor configured by options.
//
// Example:
//
//	executor := coherence.NewServerRegionFunctionExecutor(
//	    coherence.WithArguments("payload"),
//	    coherence.WithFilter("k1", "k2"))
func NewServerRegionFunctionExecutor(options ...func(executor *ServerRegionFunctionExecutor)) *ServerRegionFunctionExecutor {
	executor := &ServerRegionFunctionExecutor{filter: make([]any, 0)}
	for _, f := range options {
		f(executor)
	}
	return executor
}

// WithArguments returns a function to set the arguments passed to the function.
func WithArguments(args any) func(executor *ServerRegionFunctionExecutor) {
	return func(e *ServerRegionFunctionExecutor) {
		e.arguments = args
	}
}

// WithMemberMappedArgument returns a function to set the member mapped argument.
func WithMemberMappedArgument(arg *MemberMappedArgument) func(executor *ServerRegionFunctionExecutor) {
	return func(e *ServerRegionFunctionExecutor) {
		e.memberMappedArgument = arg
	}
}

// WithFilter returns a function to add routing keys to the filter. The filter is a set:
// duplicate keys are ignored and the first insertion order is kept.
func WithFilter(keys ...any) func(executor *ServerRegionFunctionExecutor) {
	return func(e *ServerRegionFunctionExecutor) {
		for _, k := range keys {
			if !containsKey(e.filter, k) {
				e.filter = append(e.filter, k)
			}
		}
	}
}

// WithBucketFilter returns a function to set bucket ids as the filter. The routing keys are
// then treated as whole buckets rather than individual entries.
func WithBucketFilter(buckets ...int) func(executor *ServerRegionFunctionExecutor) {
	return func(e *ServerRegionFunctionExecutor) {
		e.executeOnBucketSet = true
		for _, b := range buckets {
			if !containsKey(e.filter, b) {
				e.filter = append(e.filter, b)
			}
		}
	}
}

// WithFunctionSerialization returns a function to request that the function itself is
// serialized and sent to the server rather than its id.
func WithFunctionSerialization() func(executor *ServerRegionFunctionExecutor) {
	return func(e *ServerRegionFunctionExecutor) {
		e.fnSerializationReqd = true
	}
}

// Arguments returns the arguments passed to the function.
func (e *ServerRegionFunctionExecutor) Arguments() any {
	return e.arguments
}

// MemberMappedArgument returns the member mapped argument, which may be nil.
func (e *ServerRegionFunctionExecutor) MemberMappedArgument() *MemberMappedArgument {
	return e.memberMappedArgument
}

// Filter returns a copy of the routing keys.
func (e *ServerRegionFunctionExecutor) Filter() []any {
	keys := make([]any, len(e.filter))
	copy(keys, e.filter)
	return keys
}

// ExecuteOnBucketSet returns true if the filter holds bucket ids.
func (e *ServerRegionFunctionExecutor) ExecuteOnBucketSet() bool {
	return e.executeOnBucketSet
}

// IsFnSerializationReqd returns true if the function must be serialized.
func (e *ServerRegionFunctionExecutor) IsFnSerializationReqd() bool {
	return e.fnSerializationReqd
}

func (e *ServerRegionFunctionExecutor) String() string {
	return fmt.Sprintf("ServerRegionFunctionExecutor{filter=%v, executeOnBucketSet=%v, fnSerializationReqd=%v}",
		e.filter, e.executeOnBucketSet, e.fnSerializationReqd)
}

// requiresSerialization returns true if fn is sent serialized rather than by id.
func requiresSerialization(fn Function, executor *ServerRegionFunctionExecutor) bool {
	if executor.IsFnSerializationReqd() {
		return true
	}
	if t, ok := fn.(TransportableFunction); ok {
		return t.RequiresSerialization()
	}
	return false
}

// containsKey compares keys deeply. A comparable type can still hold an uncomparable value
// in an interface field, so == is never used.
func containsKey(keys []any, key any) bool {
	for _, k := range keys {
		if reflect.DeepEqual(k, key) {
			return true
		}
	}
	return false
}
