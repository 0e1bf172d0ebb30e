package tui

import "sync"

// labelsMinWidth is the narrowest terminal that still shows text labels on the
// form toggles; below it they collapse to glyphs.
const labelsMinWidth = 60

type viewportSize struct {
	Width  int
	Height int
}

// viewportSignal holds the terminal size for the whole process. The root model
// publishes every tea.WindowSizeMsg into it; components read or watch it instead of
// tracking resizes themselves.
type viewportSignal struct {
	mu   sync.RWMutex
	size viewportSize
	subs map[int]func(viewportSize)
	next int
}

func newViewportSignal() *viewportSignal {
	return &viewportSignal{subs: map[int]func(viewportSize){}}
}

var viewport = newViewportSignal()

// Publish stores s and notifies subscribers when it differs from the current size.
func (v *viewportSignal) Publish(s viewportSize) {
	v.mu.Lock()
	if s == v.size {
		v.mu.Unlock()
		return
	}
	v.size = s
	subs := make([]func(viewportSize), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

func (v *viewportSignal) Size() viewportSize {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.size
}

func (v *viewportSignal) Width() int { return v.Size().Width }

// Subscribe calls fn on every size change until the returned func is called.
func (v *viewportSignal) Subscribe(fn func(viewportSize)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

// showLabels reports whether toggles have room for text labels.
func (v *viewportSignal) showLabels() bool {
	return v.Width() >= labelsMinWidth
}
