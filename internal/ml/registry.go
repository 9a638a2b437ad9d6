package ml

import "sync/atomic"

// Model is an immutable network snapshot with its version label.
type Model struct {
	Version string
	Network *Network
}

// Registry publishes the serving model. Readers always see a complete
// snapshot; training swaps in a new one when it finds a better checkpoint.
type Registry struct {
	current atomic.Pointer[Model]
}

func NewRegistry(initial *Model) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Current returns the serving network.
func (r *Registry) Current() *Network {
	return r.current.Load().Network
}

func (r *Registry) Version() string {
	return r.current.Load().Version
}

// Snapshot returns the serving model.
func (r *Registry) Snapshot() *Model {
	return r.current.Load()
}

// Swap publishes m. The network must not be mutated afterwards.
func (r *Registry) Swap(m *Model) {
	r.current.Store(m)
}
