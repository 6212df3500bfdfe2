package model

import (
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Action determines how to handle a provider error.
type Action int

const (
	ActionRetry Action = iota
	ActionFailover
	ActionFatal
)

// Classify determines the action for a given provider error.
func Classify(err error) Action {
	if err == nil {
		return ActionRetry // Should not happen
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.InvalidArgument, codes.Unimplemented, codes.FailedPrecondition:
			return ActionFatal
		case codes.ResourceExhausted, codes.PermissionDenied, codes.Unauthenticated:
			return ActionFailover
		default:
			return ActionRetry
		}
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// Fatal (request can never succeed as written)
	if strings.Contains(sLower, "invalid request") ||
		strings.Contains(sLower, "unsupported model") ||
		strings.Contains(sLower, "context length") {
		return ActionFatal
	}

	// Failover (provider specific issues)
	if strings.Contains(s, "429") || strings.Contains(sLower, "too many requests") ||
		strings.Contains(s, "403") || strings.Contains(sLower, "forbidden") ||
		strings.Contains(sLower, "quota") ||
		strings.Contains(sLower, "unauthorized") ||
		strings.Contains(sLower, "rate limit") {
		return ActionFailover
	}

	// Default to Retry (network, 5xx, etc)
	return ActionRetry
}

// RetryAfter extracts a server-advertised backoff from gRPC RetryInfo error
// details, when present.
func RetryAfter(err error) (time.Duration, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return 0, false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.RetryInfo); ok {
			return info.GetRetryDelay().AsDuration(), true
		}
	}
	return 0, false
}
