// Package termview draws source frames in a terminal with tcell, two
// vertical pixels per cell using the upper half block.
package termview

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/e7canasta/videobridge"
)

// View renders frames onto a tcell screen.
type View struct {
	mu     sync.Mutex
	screen tcell.Screen
	closed bool
	// status is drawn on the last row
	status string
}

// New initializes the terminal screen.
func New() (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("termview: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("termview: %w", err)
	}
	return NewWithScreen(screen), nil
}

// NewWithScreen wraps an initialized screen (a simulation screen in tests).
func NewWithScreen(screen tcell.Screen) *View {
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	screen.Clear()
	return &View{screen: screen}
}

// Screen returns the underlying tcell screen.
func (v *View) Screen() tcell.Screen { return v.screen }

// SetStatus sets the text of the status row.
func (v *View) SetStatus(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = s
}

// Draw renders the current frame of src, scaled to fit above the status row
// with its aspect ratio kept, and shows the screen.
func (v *View) Draw(src videobridge.Source) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}

	pixels := src.Pixels()
	fw, fh := src.Width(), src.Height()
	sw, sh := v.screen.Size()

	if fw > 0 && fh > 0 && len(pixels) >= fw*fh && sw > 0 && sh > 1 {
		dw, dh := fit(fw, fh, sw, (sh-1)*2)
		offX := (sw - dw) / 2
		offY := ((sh - 1) - (dh+1)/2) / 2

		for y := 0; y < dh; y += 2 {
			for x := 0; x < dw; x++ {
				top := sample(pixels, fw, fh, dw, dh, x, y)
				bottom := top
				if y+1 < dh {
					bottom = sample(pixels, fw, fh, dw, dh, x, y+1)
				}
				style := tcell.StyleDefault.Foreground(rgb(top)).Background(rgb(bottom))
				v.screen.SetContent(offX+x, offY+y/2, '▀', nil, style)
			}
		}
	}

	v.drawStatus(sw, sh)
	v.screen.Show()
	return nil
}

func (v *View) drawStatus(sw, sh int) {
	if sh < 1 {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	row := []rune(v.status)
	for x := 0; x < sw; x++ {
		ch := ' '
		if x < len(row) {
			ch = row[x]
		}
		v.screen.SetContent(x, sh-1, ch, nil, style)
	}
}

// Close restores the terminal. Idempotent.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.screen.Fini()
}

// Actions polls terminal events and emits the actions bound to keys until
// ctx is done or the screen is closed. Resizes clear and resync the screen.
func (v *View) Actions(ctx context.Context) <-chan Action {
	out := make(chan Action, 8)
	go func() {
		defer close(out)
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.mu.Lock()
				v.screen.Clear()
				v.screen.Sync()
				v.mu.Unlock()
			case *tcell.EventKey:
				a := KeyAction(ev.Key(), ev.Rune())
				if a == ActionNone {
					continue
				}
				select {
				case out <- a:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// fit scales fw×fh to fit inside mw×mh keeping the aspect ratio.
func fit(fw, fh, mw, mh int) (w, h int) {
	if fw*mh > fh*mw {
		w, h = mw, fh*mw/fw
	} else {
		w, h = fw*mh/fh, mh
	}
	return max(w, 1), max(h, 1)
}

// sample picks the nearest source pixel for destination (x, y).
func sample(pixels []uint32, fw, fh, dw, dh, x, y int) uint32 {
	sx := x * fw / dw
	sy := y * fh / dh
	return pixels[sy*fw+sx]
}

func rgb(argb uint32) tcell.Color {
	return tcell.NewRGBColor(int32(argb>>16&0xFF), int32(argb>>8&0xFF), int32(argb&0xFF))
}
