// Package health reports and manages component lifecycle state by talking
// to systemd over D-Bus, mirroring gghealthd's health.c/sd_bus.c: every
// deployed component runs as a "ggl.<component>.service" unit, and this
// package translates systemd's ActiveState into the runtime's lifecycle
// vocabulary (NEW, INSTALLED, STARTING, RUNNING, STOPPING, FINISHED,
// ERRORED, BROKEN).
package health

import (
	"fmt"
	"strings"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/constants"
)

const (
	servicePrefix        = "ggl."
	serviceSuffix        = ".service"
	componentNameMaxLen  = constants.ComponentNameMaxLen
	maxRestartsForBroken = 3
)

// LifecycleState is one of the runtime's component lifecycle values.
type LifecycleState string

const (
	StateNew        LifecycleState = "NEW"
	StateInstalled  LifecycleState = "INSTALLED"
	StateStarting   LifecycleState = "STARTING"
	StateRunning    LifecycleState = "RUNNING"
	StateStopping   LifecycleState = "STOPPING"
	StateFinished   LifecycleState = "FINISHED"
	StateErrored    LifecycleState = "ERRORED"
	StateBroken     LifecycleState = "BROKEN"
)

// terminalStates are the lifecycle values gghealthd's subscription signal
// handler treats as "this component finished its lifecycle transition" —
// RUNNING, FINISHED, and BROKEN, mirroring subscriptions.c's
// properties_changed_handler.
var terminalStates = map[LifecycleState]bool{
	StateRunning:  true,
	StateFinished: true,
	StateBroken:   true,
}

// IsTerminal reports whether state is one gghealthd would deliver to a
// status-change subscriber.
func IsTerminal(state LifecycleState) bool {
	return terminalStates[state]
}

// QualifiedServiceName returns the systemd unit name the runtime deploys
// component under ("ggl.<component>.service"), grounded on sd_bus.h's
// SERVICE_PREFIX/SERVICE_SUFFIX and get_service_name.
func QualifiedServiceName(component string) (string, error) {
	if len(component) == 0 || len(component) > componentNameMaxLen {
		return "", corert.NewErr("health_qualified_service_name", corert.KindRange, "component name empty or too long")
	}
	return servicePrefix + component + serviceSuffix, nil
}

// normalizeComponentName strips trailing ".install"/".bootstrap" suffixes,
// grounded on bus_client.c's verify_component_exists.
func normalizeComponentName(component string) string {
	component = strings.TrimSuffix(component, ".install")
	component = strings.TrimSuffix(component, ".bootstrap")
	return component
}

// activeStateTable maps systemd's ActiveState directly onto a lifecycle
// state, where the mapping is unambiguous. "inactive" and "failed" map to
// the empty string, meaning the caller must disambiguate via
// disambiguateInactive (NRestarts/Result), matching sd_bus.c's
// get_lifecycle_state.
var activeStateTable = map[string]LifecycleState{
	"activating":   StateStarting,
	"active":       StateRunning,
	"reloading":    StateRunning,
	"deactivating": StateStopping,
}

// ActiveStateToLifecycle maps a systemd ActiveState string to a lifecycle
// state. ok is false for "inactive"/"failed", which are ambiguous without
// further D-Bus properties (restart count, exit result) — see
// disambiguateInactive.
func ActiveStateToLifecycle(activeState string) (state LifecycleState, ok bool) {
	s, known := activeStateTable[activeState]
	if known {
		return s, true
	}
	if activeState == "inactive" || activeState == "failed" {
		return "", false
	}
	return "", false
}

// disambiguateInactive resolves an "inactive"/"failed" ActiveState using
// the unit's restart count and last exit Result, grounded on sd_bus.c's
// get_component_result: never-run units are INSTALLED, units that hit the
// restart limit are BROKEN, a clean "success" Result is FINISHED, and
// anything else is ERRORED.
func disambiguateInactive(inactiveEnterTimestamp uint64, nRestarts uint32, result string) LifecycleState {
	if inactiveEnterTimestamp == 0 {
		return StateInstalled
	}
	if nRestarts >= maxRestartsForBroken {
		return StateBroken
	}
	if result == "success" {
		return StateFinished
	}
	return StateErrored
}

func validateComponentName(component string) error {
	if len(component) > componentNameMaxLen {
		return corert.NewErr("health_validate_component_name", corert.KindRange, fmt.Sprintf("component_name %q too long", component))
	}
	return nil
}
