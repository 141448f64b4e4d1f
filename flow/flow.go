// Package flow implements the two stages of the Reason+Act loop.
//
// The CompletionStage renders the system prompt, loads the configured backend
// and asks it for the next assistant message. The ActionStage executes the
// action requests of that message against the capability registry and turns
// every outcome, including failures, into an action-result message. The
// control loop in package agent alternates between the two.
package flow

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/tool"
)

const instrumentationName = "github.com/hupe1980/reactmesh/flow"

// ErrNoPendingActions is returned by the action stage when the last message
// is not an assistant message carrying action requests.
var ErrNoPendingActions = errors.New("last message has no pending action requests")

// Completer produces the next assistant message and appends it to the state.
type Completer interface {
	Complete(ctx context.Context, st *core.State, reg *tool.Registry) (core.Message, error)
}

// Actor resolves pending action requests and appends their results to the state.
type Actor interface {
	Act(ctx context.Context, st *core.State, reg *tool.Registry) ([]core.Message, error)
}

var tracer = otel.Tracer(instrumentationName)
