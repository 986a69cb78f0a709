package flow

// SystemLabelPrefix marks labels owned by the engine itself. System labels
// are propagated from parent to child executions.
const SystemLabelPrefix = "system."

// CorrelationIDLabel ties every execution of a parent/child tree together.
const CorrelationIDLabel = SystemLabelPrefix + "correlationId"

// Label is a single key/value pair attached to an execution.
//
// Labels are kept as an ordered list, not a map: duplicate keys are legal
// and later entries win when a single value is looked up.
type Label struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FindLabel returns the value of the last label with the given key.
func FindLabel(labels []Label, key string) (string, bool) {
	value, found := "", false
	for _, l := range labels {
		if l.Key == key {
			value, found = l.Value, true
		}
	}
	return value, found
}

// SystemLabels returns the labels carrying the system prefix, in order.
func SystemLabels(labels []Label) []Label {
	var out []Label
	for _, l := range labels {
		if len(l.Key) >= len(SystemLabelPrefix) && l.Key[:len(SystemLabelPrefix)] == SystemLabelPrefix {
			out = append(out, l)
		}
	}
	return out
}
