/*
 * Copyright (c) 2022, 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

/*
Package coherence provides the client-side operation protocol used to execute functions against
a region of a data grid, sending framed binary messages over pooled TCP or gRPC connections.

# Introduction

Every request sent to a server is an [Op]. An Op builds its request [message.Message] once, when it
is created, and knows how to interpret the reply. An [ExecutablePool] runs an Op: it leases a
connection, sends the request, reads the reply, lets the Op classify it and reports the timing
and outcome of the attempt to a [ConnectionStats] sink. When a connection fails the pool retries
on another server.

# Obtaining a Pool

Example:

	import (
	    coherence "github.com/oracle/coherence-go-functions/coherence"
	)

	...

	pool, err := coherence.NewConnectionPool(coherence.WithServers("localhost:40404"))
	if err != nil {
	    log.Fatal(err)
	}
	defer pool.Close()

The [NewConnectionPool] function creates a pool that connects to "localhost:40404" by default.
You can specify a comma separated list of servers using the environment variable
COHERENCE_SERVER_ADDRESS, or pass [WithServers]. A pool can also be configured from a TOML file
with [NewConnectionPoolFromFile].

# Executing a function without a result

[ExecuteRegionFunctionNoAck] and [ExecuteRegionFunctionNoAckByID] execute a function on a region
without waiting for a result:

	executor := coherence.NewServerRegionFunctionExecutor(
	    coherence.WithArguments(args),
	    coherence.WithFilter("key-1", "key-2"))

	err = coherence.ExecuteRegionFunctionNoAckByID(ctx, pool, "orders", "recalculate", executor, 0, true, false)

These are fire and forget: an exception thrown by the function on the server, or an error
response from the server, is logged as a warning and is not returned. The only errors returned
are serialization failures, connection failures after all retries and protocol violations.

# Wire format

The request carries, in order: the function state byte, the region name, the function id or
serialized function, the arguments, the member mapped argument, the flags byte, the number of
routing keys, the routing keys and the number of removed nodes (always zero). See
[FunctionState] and [ExecutionFlags] for the bit layout of the two bytes.

# Logging

The pool logs with [github.com/rs/zerolog]. Use [WithLogger] to supply a logger, otherwise the
level is taken from the environment variable COHERENCE_LOG_LEVEL: 1 (ERROR), 2 (WARNING),
3 (INFO, the default), 4 (DEBUG) or 5 (ALL).
*/
package coherence
