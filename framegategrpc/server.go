package framegategrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/tap"

	"github.com/framegate/framegate"
)

// ErrSuppressed is the message of the Unavailable status returned when a governor suppresses a call.
var ErrSuppressed = errors.New("work suppressed by frame rate governor")

// NewServerInHandle returns a tap.ServerInHandle that rejects calls while the governor suppresses work for the host.
// This should be preferred over NewUnaryServerInterceptor since it does not waste resources for rejected calls.
func NewServerInHandle[H any](governor framegate.Governor[H], host H) tap.ServerInHandle {
	return func(ctx context.Context, info *tap.Info) (context.Context, error) {
		if !governor.Allow(host) {
			return ctx, suppressedError()
		}
		return ctx, nil
	}
}

// NewUnaryServerInterceptor returns a grpc.UnaryServerInterceptor that only calls the handler when the governor allows
// work for the host, else returns an Unavailable status.
func NewUnaryServerInterceptor[H any](governor framegate.Governor[H], host H) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !governor.Allow(host) {
			return nil, suppressedError()
		}
		return handler(ctx, req)
	}
}

// NewStreamServerInterceptor returns a grpc.StreamServerInterceptor that only calls the handler when the governor
// allows work for the host, else returns an Unavailable status.
func NewStreamServerInterceptor[H any](governor framegate.Governor[H], host H) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !governor.Allow(host) {
			return suppressedError()
		}
		return handler(srv, ss)
	}
}

// IsSuppressed returns whether the err is a status returned for a suppressed call.
func IsSuppressed(err error) bool {
	s, ok := status.FromError(err)
	return ok && s.Code() == codes.Unavailable && s.Message() == ErrSuppressed.Error()
}

func suppressedError() error {
	return status.Error(codes.Unavailable, ErrSuppressed.Error())
}
