package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/validexlabs/sensorledger/internal/ledger"
	"github.com/validexlabs/sensorledger/internal/store"
)

// ErrPeerUnhealthy is the sentinel for the peer-unhealthy error kind. No
// code in this module returns it; internal/peers records a failed probe
// as the peer's Unhealthy health state.
var ErrPeerUnhealthy = errors.New("rpc: peer unhealthy")

// ErrTimeout is the sentinel for the RPC-timeout error kind. No code in
// this module returns or wraps it; Client passes gRPC deadline errors
// through unchanged.
var ErrTimeout = errors.New("rpc: timeout")

// toStatus maps the internal error taxonomy to the transport status
// codes spec.md §4.6 names: InvalidArgument for structural/sequence
// errors, Internal for storage failures, DeadlineExceeded for timeouts.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ledger.ErrInvalidPayload),
		errors.Is(err, ledger.ErrGenesisMismatch),
		errors.Is(err, ledger.ErrEmptyCandidate),
		errors.Is(err, ledger.ErrSequenceMismatch):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ledger.ErrStoreConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, store.ErrStorageError),
		errors.Is(err, ledger.ErrChainInconsistency):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
