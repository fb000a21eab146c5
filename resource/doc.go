// Package resource provides opaque handle tables.
//
// The in-process engine hands out integer handles for compiled patterns and
// for strings it allocates on behalf of callers. A Table maps those handles
// to Go values:
//
//	table := resource.NewTable[*program]("pattern")
//
//	// Insert a value, get a handle
//	h := table.Insert(p)
//
//	// Retrieve value by handle
//	p, ok := table.Get(h)
//
//	// Remove and get value (ownership transfer back to the table owner)
//	p, ok := table.Remove(h)
//
// # Stale Handles
//
// Handles embed a slot generation. Once a handle is removed its slot may be
// reused, but the old handle keeps failing Get and Remove:
//
//	table.Remove(h)
//	h2 := table.Insert(q) // may reuse the slot
//	_, ok := table.Get(h) // !ok
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	type logObserver struct{}
//
//	func (logObserver) OnResourceEvent(e resource.Event) {
//	    log.Printf("%s %d %s", e.Kind, e.Handle, e.Type)
//	}
//
//	table.Subscribe(logObserver{})
//
// # Memory Management
//
// Values are not garbage collected while their handle is live. The owner
// must call Remove when the handle is released; Close drops everything
// that is left.
package resource
