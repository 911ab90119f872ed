// Package tui draws the game in a terminal with termbox and reports key
// presses as intents.
package tui

import (
	"reflect"
	"sync"

	"github.com/DoyleJ11/liars-dice/internal/projector"
	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
)

// Terminal is the termbox Presenter. One goroutine owns the current view
// and focus; Present and key events both go through it.
type Terminal struct {
	views   chan projector.View
	events  chan termbox.Event
	intents chan projector.Intent
	quit    chan struct{}
	stop    chan struct{}

	quitOnce sync.Once
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func Open() (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, err
	}
	t := &Terminal{
		views:   make(chan projector.View, 8),
		events:  make(chan termbox.Event, 8),
		intents: make(chan projector.Intent, 8),
		quit:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	t.wg.Add(2)
	go t.poll()
	go t.run()
	return t, nil
}

func (t *Terminal) Present(v projector.View) {
	select {
	case t.views <- v:
	case <-t.stop:
	}
}

func (t *Terminal) Intents() <-chan projector.Intent { return t.intents }

// Quit is closed when the user presses Esc.
func (t *Terminal) Quit() <-chan struct{} { return t.quit }

func (t *Terminal) Close() {
	t.stopOnce.Do(func() {
		close(t.stop)
		termbox.Interrupt()
		t.wg.Wait()
		termbox.Close()
	})
}

func (t *Terminal) poll() {
	defer t.wg.Done()
	for {
		ev := termbox.PollEvent()
		if ev.Type == termbox.EventInterrupt {
			return
		}
		select {
		case t.events <- ev:
		case <-t.stop:
			return
		}
	}
}

func (t *Terminal) run() {
	defer t.wg.Done()
	var (
		view  projector.View = projector.ShowLobby{}
		focus Focus
	)
	for {
		select {
		case <-t.stop:
			return

		case v := <-t.views:
			// a different kind of view resets the highlight
			if reflect.TypeOf(v) != reflect.TypeOf(view) {
				focus = 0
			}
			view = v
			draw(Lines(view, focus))

		case ev := <-t.events:
			if ev.Type == termbox.EventResize {
				draw(Lines(view, focus))
				continue
			}
			if ev.Type != termbox.EventKey {
				continue
			}
			intent, next, quit := MapKey(view, focus, keyOf(ev))
			if quit {
				t.quitOnce.Do(func() { close(t.quit) })
				continue
			}
			if next != focus {
				focus = next
				draw(Lines(view, focus))
			}
			if intent != nil {
				select {
				case t.intents <- intent:
				default:
					// the client is behind; a dropped key press is harmless
				}
			}
		}
	}
}

func draw(lines []string) {
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	for y, line := range lines {
		x := 1
		for _, r := range line {
			termbox.SetCell(x, y+1, r, termbox.ColorDefault, termbox.ColorDefault)
			x += runewidth.RuneWidth(r)
		}
	}
	_ = termbox.Flush()
}
