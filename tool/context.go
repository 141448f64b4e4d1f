package tool

import (
	"context"

	"github.com/hupe1980/reactmesh/logging"
)

// CallInfo describes the action request currently being served.
type CallInfo struct {
	RequestID string
	Name      string
	Logger    logging.Logger
}

type callInfoKey struct{}

// WithCallInfo attaches call metadata to ctx.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFromContext returns the call metadata, defaulting to a silent logger.
func CallInfoFromContext(ctx context.Context) CallInfo {
	info, _ := ctx.Value(callInfoKey{}).(CallInfo)
	info.Logger = logging.OrNoOp(info.Logger)
	return info
}
