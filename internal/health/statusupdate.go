package health

import (
	"context"
	"os/exec"

	"github.com/vaneuver/corert"
)

// statusNotifyArg maps an incoming lifecycle_state update to the
// systemd-notify argument that advances the component's own unit through
// its systemd states, grounded verbatim on gghealthd_update_status's
// STATUS_MAP: NEW/INSTALLED/ERRORED/BROKEN/FINISHED require no systemd
// notification (they're not represented in systemd's own unit states),
// while STARTING/RUNNING/STOPPING map onto systemd's reloading/ready/
// stopping notifications.
var statusNotifyArg = map[LifecycleState]string{
	StateStarting: "--reloading",
	StateRunning:  "--ready",
	StateStopping: "--stopping",
}

// Notifier delivers a systemd-notify-style state update on behalf of a
// component's own unit. The default implementation execs systemd-notify
// inside the component's cgroup, since the notification's sender cgroup
// is how systemd attributes it to a unit — issuing it directly from
// gghealthd's own process would notify as gghealthd's unit, not the
// target component's.
type Notifier interface {
	Notify(ctx context.Context, component, unit, arg string) error
}

// ExecNotifier is the default Notifier, grounded on
// gghealthd_update_status's `cgexec -g pids:/system.slice/<unit> --
// systemd-notify <arg>` invocation.
type ExecNotifier struct{}

func (ExecNotifier) Notify(ctx context.Context, component, unit, arg string) error {
	cgroup := "pids:/system.slice/" + unit
	cmd := exec.CommandContext(ctx, "cgexec", "-g", cgroup, "--", "systemd-notify", arg)
	if err := cmd.Run(); err != nil {
		return corert.NewErr("health_update_status", corert.KindFailure, "systemd-notify failed: "+err.Error())
	}
	return nil
}

// UpdateStatus validates state and, if it maps to a systemd-notify
// argument, dispatches it through notifier. States with no systemd
// counterpart (NEW, INSTALLED, ERRORED, BROKEN, FINISHED) succeed without
// issuing a notification, matching STATUS_MAP's GGL_OBJ_NULL entries.
func UpdateStatus(ctx context.Context, notifier Notifier, component string, state LifecycleState) error {
	component = normalizeComponentName(component)
	if err := validateComponentName(component); err != nil {
		return err
	}

	arg, needsNotify := statusNotifyArg[state]
	if !isKnownLifecycleState(state) {
		return corert.NewErr("health_update_status", corert.KindInvalid, "invalid lifecycle_state")
	}
	if !needsNotify {
		return nil
	}

	unit, err := QualifiedServiceName(component)
	if err != nil {
		return err
	}
	return notifier.Notify(ctx, component, unit, arg)
}

func isKnownLifecycleState(state LifecycleState) bool {
	switch state {
	case StateNew, StateInstalled, StateStarting, StateRunning, StateStopping, StateFinished, StateErrored, StateBroken:
		return true
	default:
		return false
	}
}
