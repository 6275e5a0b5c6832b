package videobridge

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

type hookTarget struct {
	posts    atomic.Int32
	disposes atomic.Int32
	_        [64]byte
}

func (h *hookTarget) post()    { h.posts.Add(1) }
func (h *hookTarget) dispose() { h.disposes.Add(1) }

func TestHookRegistry_RunAndUnregister(t *testing.T) {
	r := NewHookRegistry()
	a, b := &hookTarget{}, &hookTarget{}

	ha := RegisterHooks(r, a, (*hookTarget).post, (*hookTarget).dispose)
	RegisterHooks(r, b, (*hookTarget).post, nil)
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	r.RunPost()
	r.RunPost()
	r.RunDispose()
	if a.posts.Load() != 2 || b.posts.Load() != 2 {
		t.Errorf("posts = %d/%d, want 2/2", a.posts.Load(), b.posts.Load())
	}
	if a.disposes.Load() != 1 || b.disposes.Load() != 0 {
		t.Errorf("disposes = %d/%d, want 1/0", a.disposes.Load(), b.disposes.Load())
	}

	ha.Unregister()
	ha.Unregister()
	r.RunPost()
	if a.posts.Load() != 2 {
		t.Error("unregistered hook still runs")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestHookRegistry_PanicRecovered(t *testing.T) {
	r := NewHookRegistry()
	target := &hookTarget{}
	RegisterHooks(r, target, func(*hookTarget) { panic("boom") }, nil)
	other := &hookTarget{}
	RegisterHooks(r, other, (*hookTarget).post, nil)

	r.RunPost()
	if other.posts.Load() != 1 {
		t.Error("a panicking hook stopped the others")
	}
	if r.Len() != 2 {
		t.Errorf("panicking hook was pruned: Len() = %d", r.Len())
	}
	runtime.KeepAlive(target)
	runtime.KeepAlive(other)
}

func TestHookRegistry_NilSafe(t *testing.T) {
	var h HookHandle
	h.Unregister()

	if got := RegisterHooks[hookTarget](nil, &hookTarget{}, nil, nil); got != (HookHandle{}) {
		t.Error("nil registry returned a live handle")
	}
}

func registerDropped(r *HookRegistry) {
	RegisterHooks(r, &hookTarget{}, (*hookTarget).post, nil)
}

func TestHookRegistry_PrunesCollected(t *testing.T) {
	r := NewHookRegistry()
	registerDropped(r)

	deadline := time.Now().Add(2 * time.Second)
	for r.Len() > 0 {
		if time.Now().After(deadline) {
			t.Skip("target was not collected in time")
		}
		runtime.GC()
		r.RunPost()
	}
	t.Log("✅ hooks of collected sources pruned")
}
