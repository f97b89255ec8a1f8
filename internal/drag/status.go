package drag

// Status is the externally observable daemon state. It only changes
// through explicit start/stop and permission-check operations.
type Status struct {
	// MonitoringEnabled reports whether input events are being consumed.
	MonitoringEnabled bool
	// AccessibilityGranted reports whether the platform has authorized
	// window mutation.
	AccessibilityGranted bool
}

// StatusFunc receives status change notifications.
type StatusFunc func(Status)

// setStatusLocked updates the status and returns the notifications to run
// once the controller lock is released. Subscribers are only notified on
// actual change.
func (c *Controller) setStatusLocked(next Status) []func() {
	if next == c.status {
		return nil
	}
	c.status = next

	notify := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fn := fn
		notify = append(notify, func() { fn(next) })
	}
	return notify
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
