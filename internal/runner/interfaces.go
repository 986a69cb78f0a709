// Package runner drives executable tasks: launching subflow executions
// from a parent task run and collapsing child terminal states back into
// the parent.
package runner

import (
	"context"
	"errors"
	"net/url"

	"flowplane/internal/flow"
)

// Resolution failures are fatal for the evaluation: the executor must not
// retry them.
var (
	ErrFlowNotFound = errors.New("flow not found")
	ErrFlowDisabled = errors.New("flow is disabled")
	ErrInvalidFlow  = errors.New("flow is invalid")
)

// FlowLookup resolves a flow by coordinates. The caller triple identifies
// who is asking, so implementations can enforce cross-namespace access
// rules.
type FlowLookup interface {
	FindByIDFromTask(ctx context.Context, tenantID, namespace, flowID string, revision *int, callerTenant, callerNamespace, callerFlowID string) (*flow.Flow, error)
}

// InputReader resolves the raw inputs supplied by a parent task against
// the target flow's declared inputs.
type InputReader interface {
	ReadExecutionInputs(ctx context.Context, f *flow.Flow, e *flow.Execution, inputs map[string]any) (map[string]any, error)
}

// VariableRenderer renders templated strings against the parent
// execution's variables.
type VariableRenderer interface {
	Render(expr string, vars map[string]any) (string, error)
}

// Storage locates the outputs produced by subflow executions.
type Storage interface {
	ContextBaseURI() *url.URL
}
