// Package xerrors implements the engine's error taxonomy.
//
// Every recoverable failure surfaced by the pipeline carries a Kind so
// callers can decide whether to skip a batch, cool down an IP, or abort the
// run, without parsing error strings.
package xerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of recovery and lease scoring.
type Kind int

const (
	// KindUnknown is the zero value, and what KindOf reports for an error that is not an *Error.
	KindUnknown Kind = iota
	KindInvalidConfig
	KindParseAmount
	KindAggregator
	KindRpc
	KindNetworkResource
	KindNetwork
	KindTransaction
	KindLanding
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "invalid_config"
	case KindParseAmount:
		return "parse_amount"
	case KindAggregator:
		return "aggregator"
	case KindRpc:
		return "rpc"
	case KindNetworkResource:
		return "network_resource"
	case KindNetwork:
		return "network"
	case KindTransaction:
		return "transaction"
	case KindLanding:
		return "landing"
	default:
		return "unknown"
	}
}

// Error is the engine's structured error type.
type Error struct {
	Kind       Kind
	Op         string // "pkg.Func" qualifying where the error originated
	Aggregator string // set for KindAggregator
	Err        error
}

func (e *Error) Error() string {
	if e.Aggregator != "" {
		return fmt.Sprintf("%s: %s[%s]: %v", e.Op, e.Kind, e.Aggregator, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error. Kind values are not matched by errors.Is; use
// errors.As(err, &target) and inspect target.Kind, or KindOf.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// AggregatorErr builds a KindAggregator error tagged with the originating
// aggregator name.
func AggregatorErr(op, aggregator string, err error) *Error {
	return &Error{Op: op, Kind: KindAggregator, Aggregator: aggregator, Err: err}
}

// KindOf extracts the Kind of err, walking wrapped errors. Returns
// KindUnknown if err (or nothing in its chain) is an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
