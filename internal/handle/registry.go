// Package handle maps small integer handles to game-side objects.
//
// A Handle is the only value ever stored in a physics fixture's user data.
// Collision callbacks resolve it back through the Registry, so a fixture whose
// owner has already been destroyed simply resolves to nothing.
package handle

// Handle identifies a registered object. The zero Handle is never issued.
type Handle uint32

// None is the zero handle; it never resolves.
const None Handle = 0

// Registry owns the handle space. Handles are allocated from a monotonic
// counter and are never reused, so a freed handle stays dead forever.
//
// Registry is not safe for concurrent use; it is owned by the single
// simulation goroutine.
type Registry[T any] struct {
	objects map[Handle]T
	next    Handle
}

// NewRegistry creates an empty registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		objects: make(map[Handle]T),
	}
}

// Register stores obj under a fresh handle
func (r *Registry[T]) Register(obj T) Handle {
	r.next++
	h := r.next
	r.objects[h] = obj
	return h
}

// Resolve returns the object registered under h. ok is false for None and
// for handles that were freed.
func (r *Registry[T]) Resolve(h Handle) (obj T, ok bool) {
	if h == None {
		return obj, false
	}
	obj, ok = r.objects[h]
	return obj, ok
}

// Free removes h. Freeing an unknown or already freed handle is a no-op.
func (r *Registry[T]) Free(h Handle) {
	delete(r.objects, h)
}

// Len returns the number of live handles
func (r *Registry[T]) Len() int {
	return len(r.objects)
}
