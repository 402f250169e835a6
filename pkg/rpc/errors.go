package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kpfaulkner/featuretables/pkg/query"
	"github.com/kpfaulkner/featuretables/pkg/storage"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

// knownErrors are sent as "[tag] message" so the client can restore them.
var knownErrors = []struct {
	code codes.Code
	tag  string
	err  error
}{
	{codes.NotFound, "table_not_found", storage.ErrTableNotFound},
	{codes.FailedPrecondition, "not_initialized", storage.ErrNotInitialized},
	{codes.AlreadyExists, "already_initialized", storage.ErrAlreadyInitialized},
	{codes.InvalidArgument, "invalid_column", storage.ErrInvalidColumn},
	{codes.InvalidArgument, "invalid_range", storage.ErrInvalidRange},
	{codes.InvalidArgument, "invalid_headers", storage.ErrInvalidHeaders},
	{codes.InvalidArgument, "kind_mismatch", table.ErrKindMismatch},
	{codes.InvalidArgument, "array_size", table.ErrArraySize},
	{codes.InvalidArgument, "length_mismatch", table.ErrLengthMismatch},
	{codes.InvalidArgument, "invalid_condition", query.ErrInvalidCondition},
	{codes.Unavailable, "disabled", storage.ErrDisabled},
	{codes.Unavailable, "closed", storage.ErrClosed},
}

// remoteError keeps the server's message but unwraps to the local sentinel.
type remoteError struct {
	msg string
	err error
}

func (e *remoteError) Error() string {
	return e.msg
}

func (e *remoteError) Unwrap() error {
	return e.err
}

// ToStatus converts a storage error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			return status.Errorf(k.code, "[%s] %s", k.tag, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus converts a gRPC status error back to one matching the sentinel
// the server returned.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	msg := st.Message()
	if strings.HasPrefix(msg, "[") {
		if end := strings.Index(msg, "] "); end > 0 {
			tag := msg[1:end]
			for _, k := range knownErrors {
				if k.tag == tag {
					return &remoteError{msg: msg[end+2:], err: k.err}
				}
			}
		}
	}

	switch st.Code() {
	case codes.Canceled:
		return fmt.Errorf("%s: %w", msg, context.Canceled)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w", msg, context.DeadlineExceeded)
	}
	return err
}
