package settings

import (
	"sync"
	"sync/atomic"

	"github.com/framegate/framegate/gate"
)

// ChangedEvent indicates the settings in a Store were replaced.
type ChangedEvent struct {
	Old Settings
	New Settings
}

// Store holds the current Settings. Readers always observe a complete snapshot, so a config read once per decision is
// consistent even while settings are being updated.
//
// This type is concurrency safe.
type Store struct {
	current atomic.Pointer[Settings]

	mtx       sync.Mutex
	listeners []func(ChangedEvent)
}

// NewStore returns a Store holding s.
func NewStore(s Settings) *Store {
	st := &Store{}
	st.current.Store(&s)
	return st
}

// Load returns the current settings.
func (st *Store) Load() Settings {
	return *st.current.Load()
}

// GateConfig returns the current settings as a gate.Config.
func (st *Store) GateConfig() gate.Config {
	return st.Load().GateConfig()
}

// Store replaces the current settings and notifies listeners.
func (st *Store) Store(s Settings) {
	st.mtx.Lock()
	old := *st.current.Swap(&s)
	listeners := st.listeners
	st.mtx.Unlock()

	st.notify(listeners, ChangedEvent{Old: old, New: s})
}

// Update applies fn to a copy of the current settings and stores the result.
func (st *Store) Update(fn func(*Settings)) Settings {
	st.mtx.Lock()
	old := *st.current.Load()
	s := old
	fn(&s)
	st.current.Store(&s)
	listeners := st.listeners
	st.mtx.Unlock()

	st.notify(listeners, ChangedEvent{Old: old, New: s})
	return s
}

// OnChange registers a listener to be called after the settings are replaced.
func (st *Store) OnChange(listener func(ChangedEvent)) {
	st.mtx.Lock()
	defer st.mtx.Unlock()
	st.listeners = append(st.listeners[:len(st.listeners):len(st.listeners)], listener)
}

func (st *Store) notify(listeners []func(ChangedEvent), event ChangedEvent) {
	for _, listener := range listeners {
		listener(event)
	}
}
