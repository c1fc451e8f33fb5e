// Package contact turns physics begin/end callbacks, which carry two fixture
// handles, into semantic calls on the resolved game objects.
package contact

import (
	"spark-arena/internal/handle"
	"spark-arena/internal/physics"
)

// BeginContacter is implemented by objects that react to a contact starting
type BeginContacter interface {
	OnBeginContact(other any)
}

// EndContacter is implemented by objects that react to a contact ending
type EndContacter interface {
	OnEndContact(other any)
}

// Dispatcher implements physics.ContactListener on top of a handle registry.
// A pair is delivered only when both handles still resolve; each side that
// implements the capability receives the other side's object.
type Dispatcher struct {
	registry *handle.Registry[any]
}

var _ physics.ContactListener = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher resolving through registry
func NewDispatcher(registry *handle.Registry[any]) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// BeginContact implements physics.ContactListener
func (d *Dispatcher) BeginContact(a, b handle.Handle) {
	objA, objB, ok := d.resolve(a, b)
	if !ok {
		return
	}
	if c, ok := objA.(BeginContacter); ok {
		c.OnBeginContact(objB)
	}
	if c, ok := objB.(BeginContacter); ok {
		c.OnBeginContact(objA)
	}
}

// EndContact implements physics.ContactListener
func (d *Dispatcher) EndContact(a, b handle.Handle) {
	objA, objB, ok := d.resolve(a, b)
	if !ok {
		return
	}
	if c, ok := objA.(EndContacter); ok {
		c.OnEndContact(objB)
	}
	if c, ok := objB.(EndContacter); ok {
		c.OnEndContact(objA)
	}
}

// EndAll synthesizes an end-contact for each contact, in order. It is used
// before a body is torn down so every party's bookkeeping stays balanced.
func (d *Dispatcher) EndAll(contacts []physics.Contact) {
	for _, c := range contacts {
		d.EndContact(c.A, c.B)
	}
}

func (d *Dispatcher) resolve(a, b handle.Handle) (any, any, bool) {
	objA, okA := d.registry.Resolve(a)
	objB, okB := d.registry.Resolve(b)
	if !okA || !okB || objA == nil || objB == nil {
		return nil, nil, false
	}
	return objA, objB, true
}
