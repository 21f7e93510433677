/*
 * Copyright (c) 2025 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package coherence

import (
	"fmt"

	"github.com/oracle/coherence-go-functions/coherence/message"
)

// ReplyKind is the outcome of interpreting a reply message.
type ReplyKind int

const (
	ReplySuccess ReplyKind = iota
	ReplyApplicationException
	ReplyProtocolError
	ReplyUnexpectedType
)

func (k ReplyKind) String() string {
	switch k {
	case ReplySuccess:
		return "Success"
	case ReplyApplicationException:
		return "ApplicationException"
	case ReplyProtocolError:
		return "ProtocolError"
	case ReplyUnexpectedType:
		return "UnexpectedType"
	}
	return "Unknown"
}

// Reply is the classification of a reply message.
type Reply struct {
	Kind ReplyKind
	Type message.Type

	// Exception is set for ReplyApplicationException when the carried exception could be decoded.
	Exception *ServerException

	// DecodeErr is set for ReplyApplicationException when the carried exception could not be decoded.
	DecodeErr error
}

func (r Reply) String() string {
	return fmt.Sprintf("Reply{kind=%v, type=%v, exception=%v}", r.Kind, r.Type, r.Exception)
}

// ClassifyReply classifies reply. isErrorResponse reports the error types specific to the
// operation the reply belongs to.
func ClassifyReply(reply *message.Message, isErrorResponse func(message.Type) bool) Reply {
	msgType := reply.Type()
	switch {
	case msgType == message.Reply:
		return Reply{Kind: ReplySuccess, Type: msgType}
	case msgType == message.Exception:
		r := Reply{Kind: ReplyApplicationException, Type: msgType}
		part := reply.Part(0)
		if part == nil {
			r.DecodeErr = fmt.Errorf("exception reply has no parts")
			return r
		}
		var exception ServerException
		if err := part.DecodeObject(&exception); err != nil {
			r.DecodeErr = err
			return r
		}
		r.Exception = &exception
		return r
	case isErrorResponse != nil && isErrorResponse(msgType):
		return Reply{Kind: ReplyProtocolError, Type: msgType}
	}
	return Reply{Kind: ReplyUnexpectedType, Type: msgType}
}
