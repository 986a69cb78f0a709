package flow

// Input declares one input a flow accepts.
type Input struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// Flow is a workflow definition. Parsing and validation of the flow DSL
// happen upstream; the scheduler and runner only consume the resolved form.
type Flow struct {
	TenantID  string  `json:"tenantId"`
	Namespace string  `json:"namespace"`
	ID        string  `json:"id"`
	Revision  int     `json:"revision"`
	Disabled  bool    `json:"disabled"`
	Inputs    []Input `json:"inputs,omitempty"`
	Labels    []Label `json:"labels,omitempty"`

	// Error is set when the flow source could not be parsed. Such a flow is
	// kept so its executions can be reported, but it must never be launched.
	Error string `json:"error,omitempty"`
}

// Invalid reports whether the flow failed parsing upstream.
func (f *Flow) Invalid() bool { return f.Error != "" }
