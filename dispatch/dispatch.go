// Package dispatch implements the message-type callback registry (C9): a
// mapping from packet type tag to an ordered list of callback handles,
// invoked synchronously with respect to the circuit engine's inbound pump.
// A second registry, sharing the same handle vocabulary, carries capability
// (HTTP long-poll) event callbacks so collaborators see one uniform
// registration surface for both transports, per spec §4.8 and the
// multicast-event-delegate note in §9. Grounded on the teacher's
// api.Server route-table pattern (register once, dispatch by key, isolate
// handler panics) generalized from HTTP routes to protocol callbacks.
package dispatch

import (
	"log"
	"sync"

	"dev.mvwire.core/internal/osd"
	"dev.mvwire.core/protocol/messages"
)

// Handle identifies a registered callback for later removal. Handles avoid
// equality-by-closure issues that plague comparing func values directly.
type Handle uint64

// MessageHandler receives one decoded message of the type it was
// registered for.
type MessageHandler func(m messages.Message)

// EventHandler receives one decoded capability event: its name (the event
// queue's "message" field) and its OSD body.
type EventHandler func(name string, body osd.Value)

type msgEntry struct {
	handle Handle
	fn     MessageHandler
}

type eventEntry struct {
	handle Handle
	fn     EventHandler
}

// Registry is the mapping from packet type to an ordered callback list,
// plus the parallel capability-event callback list. It is safe for
// concurrent use; the zero value is not usable, use New.
type Registry struct {
	mu   sync.Mutex
	next Handle

	messages map[messages.PacketType][]msgEntry
	events   []eventEntry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{messages: make(map[messages.PacketType][]msgEntry)}
}

// Register adds h to the ordered callback list for t and returns a handle
// usable with Unregister. Registration order determines invocation order
// (§5, ordering guarantee (b)).
func (r *Registry) Register(t messages.PacketType, h MessageHandler) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	handle := r.next
	r.messages[t] = append(r.messages[t], msgEntry{handle: handle, fn: h})
	return handle
}

// Unregister removes the callback identified by handle from t's list, if
// present. No-op if the handle is unknown or already removed.
func (r *Registry) Unregister(t messages.PacketType, handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.messages[t]
	for i, e := range list {
		if e.handle == handle {
			r.messages[t] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// RegisterEvent adds h to the capability-event callback list.
func (r *Registry) RegisterEvent(h EventHandler) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	handle := r.next
	r.events = append(r.events, eventEntry{handle: handle, fn: h})
	return handle
}

// UnregisterEvent removes a capability-event callback.
func (r *Registry) UnregisterEvent(handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e.handle == handle {
			r.events = append(r.events[:i:i], r.events[i+1:]...)
			return
		}
	}
}

// Dispatch invokes every callback registered for m.Type(), in registration
// order. A callback that panics is caught, logged, and isolated: the
// remaining callbacks for m still run, and the inbound pump is unaffected
// (§7 propagation rule for callback failures).
func (r *Registry) Dispatch(m messages.Message) {
	r.mu.Lock()
	list := append([]msgEntry(nil), r.messages[m.Type()]...)
	r.mu.Unlock()
	for _, e := range list {
		invokeMessage(e.fn, m)
	}
}

// DispatchEvent invokes every registered capability-event callback with
// (name, body), pushed here by the out-of-band event-queue long-poll
// client so collaborators observe one uniform callback surface for UDP
// messages and capability events alike.
func (r *Registry) DispatchEvent(name string, body osd.Value) {
	r.mu.Lock()
	list := append([]eventEntry(nil), r.events...)
	r.mu.Unlock()
	for _, e := range list {
		invokeEvent(e.fn, name, body)
	}
}

func invokeMessage(fn MessageHandler, m messages.Message) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("dispatch: handler for %v panicked: %v", m.Type(), p)
		}
	}()
	fn(m)
}

func invokeEvent(fn EventHandler, name string, body osd.Value) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("dispatch: event handler for %q panicked: %v", name, p)
		}
	}()
	fn(name, body)
}
