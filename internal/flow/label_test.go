package flow

import "testing"

func TestFindLabel_LastWins(t *testing.T) {
	labels := []Label{
		{Key: "env", Value: "dev"},
		{Key: "team", Value: "data"},
		{Key: "env", Value: "prod"},
	}

	value, ok := FindLabel(labels, "env")
	if !ok || value != "prod" {
		t.Errorf("FindLabel(env) = %q, %v, want prod, true", value, ok)
	}

	if _, ok := FindLabel(labels, "missing"); ok {
		t.Error("FindLabel should report missing keys")
	}
}

func TestSystemLabels(t *testing.T) {
	labels := []Label{
		{Key: "env", Value: "prod"},
		{Key: CorrelationIDLabel, Value: "abc"},
		{Key: SystemLabelPrefix + "username", Value: "alice"},
	}

	system := SystemLabels(labels)
	if len(system) != 2 {
		t.Fatalf("expected 2 system labels, got %d", len(system))
	}
	if system[0].Key != CorrelationIDLabel || system[1].Key != SystemLabelPrefix+"username" {
		t.Errorf("system labels out of order: %v", system)
	}
}
