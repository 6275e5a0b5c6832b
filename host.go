package videobridge

import (
	"log/slog"
	"sync"
	"weak"
)

// Host is the embedding drawing host.
type Host interface {
	// DataPath resolves name against the host's data directory. An empty
	// result means the host has none.
	DataPath(name string) string
	// IsGPU reports whether the host renders through a GPU pipeline.
	IsGPU() bool
	// Hooks returns the per-frame and shutdown hook registry.
	Hooks() *HookRegistry
}

// CaptureEventHandler is discovered on the host and called after every
// accepted capture frame while capturing.
type CaptureEventHandler interface {
	CaptureEvent(c *Capture)
}

// MovieEventHandler is discovered on the host and called after every accepted
// movie frame while playing.
type MovieEventHandler interface {
	MovieEvent(m *Movie)
}

// FrameEventHandler is the source-agnostic form of the frame callback. An
// error disables the callback.
type FrameEventHandler interface {
	FrameEvent(src Source) error
}

// HookRegistry holds the post (end of render) and dispose (shutdown) hooks of
// live sources.
//
// Entries reference their source through a weak pointer, so a registered
// source the host dropped can still be collected; its entry is skipped and
// pruned on the next run. Sources also unregister explicitly on Dispose.
type HookRegistry struct {
	mu      sync.Mutex
	entries map[uint64]*hookEntry
	next    uint64
}

type hookEntry struct {
	post    func() bool
	dispose func() bool
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{entries: make(map[uint64]*hookEntry)}
}

// HookHandle removes a registration.
type HookHandle struct {
	reg *HookRegistry
	id  uint64
}

// Unregister removes the hooks. Safe on a zero handle and more than once.
func (h HookHandle) Unregister() {
	if h.reg == nil {
		return
	}
	h.reg.mu.Lock()
	delete(h.reg.entries, h.id)
	h.reg.mu.Unlock()
}

// RegisterHooks adds post and dispose hooks for target. The hooks receive the
// target only while it is alive; post and dispose must not capture target
// themselves.
func RegisterHooks[T any](r *HookRegistry, target *T, post, dispose func(*T)) HookHandle {
	if r == nil || target == nil {
		return HookHandle{}
	}
	wp := weak.Make(target)
	call := func(fn func(*T)) func() bool {
		return func() bool {
			t := wp.Value()
			if t == nil {
				return false
			}
			if fn != nil {
				fn(t)
			}
			return true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[uint64]*hookEntry)
	}
	r.next++
	r.entries[r.next] = &hookEntry{post: call(post), dispose: call(dispose)}
	return HookHandle{reg: r, id: r.next}
}

// Len returns the number of registrations.
func (r *HookRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RunPost runs every post hook. Hosts call it once per rendered frame.
func (r *HookRegistry) RunPost() {
	r.run(func(e *hookEntry) func() bool { return e.post })
}

// RunDispose runs every dispose hook. Hosts call it once at shutdown.
func (r *HookRegistry) RunDispose() {
	r.run(func(e *hookEntry) func() bool { return e.dispose })
}

func (r *HookRegistry) run(pick func(*hookEntry) func() bool) {
	r.mu.Lock()
	snapshot := make(map[uint64]*hookEntry, len(r.entries))
	for id, e := range r.entries {
		snapshot[id] = e
	}
	r.mu.Unlock()

	var dead []uint64
	for id, e := range snapshot {
		if !safeHook(pick(e)) {
			dead = append(dead, id)
		}
	}
	if len(dead) == 0 {
		return
	}

	r.mu.Lock()
	for _, id := range dead {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	slog.Debug("videobridge: pruned hooks of collected sources", "count", len(dead))
}

func safeHook(fn func() bool) (alive bool) {
	alive = true
	defer func() {
		if r := recover(); r != nil {
			slog.Error("videobridge: host hook panicked", "panic", r)
		}
	}()
	return fn()
}
