package plugin

import (
	"fmt"

	"github.com/roach88/sqlbridge/internal/value"
)

// MethodCall is one incoming call.
type MethodCall struct {
	Method    string
	Arguments value.Value
}

// ReplyKind discriminates the three reply shapes.
type ReplyKind int

const (
	ReplySuccess ReplyKind = iota
	ReplyError
	ReplyNotImplemented
)

func (k ReplyKind) String() string {
	switch k {
	case ReplySuccess:
		return "success"
	case ReplyError:
		return "error"
	case ReplyNotImplemented:
		return "not_implemented"
	default:
		return fmt.Sprintf("reply(%d)", int(k))
	}
}

// Reply is the outcome of a MethodCall.
type Reply struct {
	Kind ReplyKind

	// Value is the success payload. Nil means success with no value.
	Value value.Value

	// Code, Message and Details describe an error reply.
	Code    string
	Message string
	Details value.Value
}

// Success builds a success reply. A nil v carries no value.
func Success(v value.Value) Reply {
	return Reply{Kind: ReplySuccess, Value: v}
}

// Error builds an error reply.
func Error(code, message string, details value.Value) Reply {
	return Reply{Kind: ReplyError, Code: code, Message: message, Details: details}
}

// NotImplemented builds the reply for unknown methods.
func NotImplemented() Reply {
	return Reply{Kind: ReplyNotImplemented}
}

// IsSuccess reports whether the reply is a success.
func (r Reply) IsSuccess() bool {
	return r.Kind == ReplySuccess
}
