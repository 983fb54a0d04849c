package rpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/cipherlab/internal/cipher"
)

// ErrorDomain names cipherlab in google.rpc.ErrorInfo details.
const ErrorDomain = "cipherlab"

// toStatus reports the kind used for metrics and converts a service error
// into a gRPC status error. Taxonomy errors become InvalidArgument with an
// ErrorInfo detail whose reason is the error kind.
func toStatus(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if st, ok := status.FromError(err); ok {
		return st.Code().String(), st.Err()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled", status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", status.Error(codes.DeadlineExceeded, "request timeout")
	}

	kind := cipher.KindOf(err)
	if kind == cipher.KindInternal {
		return string(kind), status.Error(codes.Internal, "internal error")
	}
	st := status.New(codes.InvalidArgument, err.Error())
	if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(kind),
		Domain: ErrorDomain,
	}); derr == nil {
		st = detailed
	}
	return string(kind), st.Err()
}

// KindFromError recovers the cipher error kind from a status returned by the
// server, or "" when the status carries none.
func KindFromError(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}
