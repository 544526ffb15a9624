package health

import (
	"context"
	"fmt"

	systemdbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/vaneuver/corert"
)

// Client talks to the systemd manager over D-Bus to read and act on
// component unit state. Grounded on gghealthd's sd_bus.c (open_bus,
// get_unit_path, get_active_state, get_component_result,
// gghealthd_restart_component's RestartUnit/ResetFailedUnit calls),
// reimplemented against github.com/coreos/go-systemd/v22/dbus instead of
// hand-rolled sd-bus calls, since that package is the idiomatic Go client
// for the systemd manager D-Bus API.
type Client struct {
	conn *systemdbus.Conn
}

// NewClient opens a connection to the system D-Bus, matching open_bus's
// sd_bus_default_system.
func NewClient(ctx context.Context) (*Client, error) {
	conn, err := systemdbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, corert.NewErr("health_open_bus", corert.KindNoConn, fmt.Sprintf("connect to system bus: %v", err))
	}
	return &Client{conn: conn}, nil
}

// Close releases the D-Bus connection.
func (c *Client) Close() {
	c.conn.Close()
}

// GetLifecycleState fetches and classifies component's lifecycle state,
// grounded on get_lifecycle_state's ActiveState-then-disambiguate flow.
func (c *Client) GetLifecycleState(ctx context.Context, component string) (LifecycleState, error) {
	component = normalizeComponentName(component)
	if err := validateComponentName(component); err != nil {
		return "", err
	}
	unit, err := QualifiedServiceName(component)
	if err != nil {
		return "", err
	}

	activeProp, err := c.conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return "", translateDBusErr("health_get_active_state", err)
	}
	activeState, ok := activeProp.Value.Value().(string)
	if !ok {
		return "", corert.NewErr("health_get_active_state", corert.KindFatal, "ActiveState property was not a string")
	}

	if state, ok := ActiveStateToLifecycle(activeState); ok {
		return state, nil
	}
	return c.disambiguate(ctx, unit)
}

func (c *Client) disambiguate(ctx context.Context, unit string) (LifecycleState, error) {
	tsProp, err := c.conn.GetUnitTypePropertyContext(ctx, unit, "Unit", "InactiveEnterTimestampMonotonic")
	if err != nil {
		return "", translateDBusErr("health_get_timestamp", err)
	}
	timestamp, _ := tsProp.Value.Value().(uint64)
	if timestamp == 0 {
		return StateInstalled, nil
	}

	restartsProp, err := c.conn.GetUnitTypePropertyContext(ctx, unit, "Service", "NRestarts")
	if err != nil {
		return "", translateDBusErr("health_get_nrestarts", err)
	}
	nRestarts, _ := restartsProp.Value.Value().(uint32)

	resultProp, err := c.conn.GetUnitTypePropertyContext(ctx, unit, "Service", "Result")
	if err != nil {
		return "", translateDBusErr("health_get_result", err)
	}
	result, _ := resultProp.Value.Value().(string)

	return disambiguateInactive(timestamp, nRestarts, result), nil
}

// RestartComponent restarts component's unit and resets its systemd
// failure counter, grounded on gghealthd_restart_component's
// RestartUnit+ResetFailedUnit pair.
func (c *Client) RestartComponent(ctx context.Context, component string) error {
	component = normalizeComponentName(component)
	if err := validateComponentName(component); err != nil {
		return err
	}
	unit, err := QualifiedServiceName(component)
	if err != nil {
		return err
	}

	resultCh := make(chan string, 1)
	if _, err := c.conn.RestartUnitContext(ctx, unit, "replace", resultCh); err != nil {
		return translateDBusErr("health_restart_unit", err)
	}
	select {
	case <-resultCh:
	case <-ctx.Done():
		return corert.NewErr("health_restart_unit", corert.KindRetry, "timed out waiting for restart job")
	}

	if err := c.conn.ResetFailedUnitContext(ctx, unit); err != nil {
		return translateDBusErr("health_reset_failed_unit", err)
	}
	return nil
}

func translateDBusErr(op string, err error) error {
	return corert.NewErr(op, corert.KindFailure, err.Error())
}
