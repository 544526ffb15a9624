package health

import (
	"context"
	"testing"
)

type recordingNotifier struct {
	calls []string
}

func (r *recordingNotifier) Notify(_ context.Context, component, unit, arg string) error {
	r.calls = append(r.calls, component+"|"+unit+"|"+arg)
	return nil
}

func TestUpdateStatusDispatchesMappedStates(t *testing.T) {
	n := &recordingNotifier{}
	if err := UpdateStatus(context.Background(), n, "foo", StateRunning); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.calls) != 1 || n.calls[0] != "foo|ggl.foo.service|--ready" {
		t.Fatalf("unexpected notify calls: %v", n.calls)
	}
}

func TestUpdateStatusSkipsUnmappedStates(t *testing.T) {
	n := &recordingNotifier{}
	for _, s := range []LifecycleState{StateNew, StateInstalled, StateErrored, StateBroken, StateFinished} {
		if err := UpdateStatus(context.Background(), n, "foo", s); err != nil {
			t.Fatalf("unexpected error for %v: %v", s, err)
		}
	}
	if len(n.calls) != 0 {
		t.Fatalf("expected no notify calls, got %v", n.calls)
	}
}

func TestUpdateStatusRejectsInvalidState(t *testing.T) {
	n := &recordingNotifier{}
	if err := UpdateStatus(context.Background(), n, "foo", LifecycleState("NOT_A_STATE")); err == nil {
		t.Fatal("expected error for invalid lifecycle_state")
	}
}
