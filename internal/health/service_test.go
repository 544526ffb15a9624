package health

import "testing"

func TestQualifiedServiceName(t *testing.T) {
	name, err := QualifiedServiceName("com.example.Thing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "ggl.com.example.Thing.service" {
		t.Fatalf("unexpected unit name: %q", name)
	}
}

func TestQualifiedServiceNameRejectsEmpty(t *testing.T) {
	if _, err := QualifiedServiceName(""); err == nil {
		t.Fatal("expected error for empty component name")
	}
}

func TestNormalizeComponentNameStripsSuffixes(t *testing.T) {
	cases := map[string]string{
		"foo.install":   "foo",
		"foo.bootstrap": "foo",
		"foo":           "foo",
	}
	for in, want := range cases {
		if got := normalizeComponentName(in); got != want {
			t.Errorf("normalizeComponentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestActiveStateToLifecycleUnambiguous(t *testing.T) {
	cases := map[string]LifecycleState{
		"activating":   StateStarting,
		"active":       StateRunning,
		"reloading":    StateRunning,
		"deactivating": StateStopping,
	}
	for in, want := range cases {
		got, ok := ActiveStateToLifecycle(in)
		if !ok || got != want {
			t.Errorf("ActiveStateToLifecycle(%q) = (%q, %v), want (%q, true)", in, got, ok, want)
		}
	}
}

func TestActiveStateToLifecycleAmbiguous(t *testing.T) {
	for _, in := range []string{"inactive", "failed"} {
		if _, ok := ActiveStateToLifecycle(in); ok {
			t.Errorf("expected %q to be ambiguous", in)
		}
	}
}

func TestDisambiguateInactiveNeverRun(t *testing.T) {
	if got := disambiguateInactive(0, 0, ""); got != StateInstalled {
		t.Fatalf("expected INSTALLED, got %v", got)
	}
}

func TestDisambiguateInactiveBroken(t *testing.T) {
	if got := disambiguateInactive(123, 3, "exit-code"); got != StateBroken {
		t.Fatalf("expected BROKEN, got %v", got)
	}
}

func TestDisambiguateInactiveFinished(t *testing.T) {
	if got := disambiguateInactive(123, 0, "success"); got != StateFinished {
		t.Fatalf("expected FINISHED, got %v", got)
	}
}

func TestDisambiguateInactiveErrored(t *testing.T) {
	if got := disambiguateInactive(123, 1, "exit-code"); got != StateErrored {
		t.Fatalf("expected ERRORED, got %v", got)
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []LifecycleState{StateRunning, StateFinished, StateBroken} {
		if !IsTerminal(s) {
			t.Errorf("expected %v to be terminal", s)
		}
	}
	for _, s := range []LifecycleState{StateNew, StateInstalled, StateStarting, StateStopping, StateErrored} {
		if IsTerminal(s) {
			t.Errorf("expected %v to be non-terminal", s)
		}
	}
}
