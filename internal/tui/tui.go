// Package tui is the terminal front end: a tcell screen showing the
// parameter panel, the keyboard and a text oscilloscope.
package tui

import (
	"context"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	log "github.com/golang/glog"

	"github.com/cbegin/virtsynth-go/internal/audio"
	"github.com/cbegin/virtsynth-go/internal/keymap"
	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/panel"
)

const (
	frameInterval = 16 * time.Millisecond
	scopeRows     = 9
	panelTop      = 2
	help          = "esc quit  space silence  arrows edit  1-3 osc  w wave  p phase"
)

var (
	titleStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	textStyle   = tcell.StyleDefault
	selStyle    = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	keyStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorGray)
	heldStyle   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	scopeStyle  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	axisStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorSilver)
)

// AudioConfig adapts a stream request for a terminal process. ebiten audio
// only plays while an ebiten game loop runs, so that backend, named or
// implied by an empty name, is replaced by oto.
func AudioConfig(cfg audio.Config) audio.Config {
	cfg.Backend = audio.BackendName(cfg.Backend)
	if cfg.Backend == "ebiten" {
		log.Infof("tui: ebiten audio needs a game loop, using oto")
		cfg.Backend = "oto"
	}
	return cfg
}

type App struct {
	screen tcell.Screen
	inst   panel.Instrument
	panel  *panel.Panel
	holder *keymap.Holder
	scope  *panel.Scope

	scopeBuf []float32
	held     note.Set
}

// New builds an App on an initialised screen. scope may be nil, in which
// case no waveform is drawn.
func New(screen tcell.Screen, inst panel.Instrument, holder *keymap.Holder, scope *panel.Scope) *App {
	return &App{
		screen:   screen,
		inst:     inst,
		panel:    panel.New(inst),
		holder:   holder,
		scope:    scope,
		scopeBuf: make([]float32, 1024),
	}
}

// HandleEvent applies one terminal event at now. It returns false when the
// user asked to quit.
func (a *App) HandleEvent(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			a.holder.ReleaseAll()
			a.inst.SetActiveNotes(0)
			return false
		case tcell.KeyUp:
			a.panel.Arrow(panel.Up)
		case tcell.KeyDown:
			a.panel.Arrow(panel.Down)
		case tcell.KeyLeft:
			a.panel.Arrow(panel.Left)
		case tcell.KeyRight:
			a.panel.Arrow(panel.Right)
		case tcell.KeyRune:
			r := ev.Rune()
			if r == ' ' {
				a.holder.ReleaseAll()
				return true
			}
			if !a.holder.Press(r, now) {
				a.panel.Rune(r)
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
	case nil:
		return false
	}
	return true
}

// Tick publishes the held notes and redraws.
func (a *App) Tick(now time.Time) {
	held := a.holder.Set(now)
	if held != a.held {
		log.V(2).Infof("held notes %v", held)
	}
	a.held = held
	a.inst.SetActiveNotes(held)
	a.Draw()
}

func (a *App) Draw() {
	a.screen.Clear()
	w, h := a.screen.Size()

	a.drawText(1, 0, "virtsynth", titleStyle)
	a.drawText(12, 0, help, statusStyle)

	lines := a.panel.Lines()
	for i, line := range lines {
		style := textStyle
		if i == a.panel.Selected() {
			style = selStyle
		}
		a.drawText(1, panelTop+i, line, style)
	}

	y := panelTop + len(lines) + 1
	a.drawKeyboard(1, y)
	y += 3

	if a.scope != nil && h-y >= 3 {
		a.drawScope(y, w, min(scopeRows, h-y))
	}
	a.screen.Show()
}

func (a *App) drawKeyboard(x, y int) {
	layout := a.holder.Layout()
	active := a.inst.ActiveNotes()
	for n := note.Note(0); n < note.Count; n++ {
		style := keyStyle
		if active.Has(n) {
			style = heldStyle
		}
		col := x + int(n)*4
		a.drawText(col, y, " "+string(layout.Key(n))+" ", style)
		a.drawText(col, y+1, n.String(), textStyle)
	}
}

// drawScope plots the most recent samples, one per column, triggered on a
// rising zero crossing.
func (a *App) drawScope(top, width, rows int) {
	need := 2 * width
	if need > len(a.scopeBuf) {
		a.scopeBuf = make([]float32, need)
	}
	samples := a.scope.Snapshot(a.scopeBuf[:need])
	start := panel.Trigger(samples, len(samples)-width)
	if len(samples)-start < width {
		width = len(samples) - start
	}
	mid := top + rows/2
	half := float64(rows / 2)
	for x := 0; x < width; x++ {
		a.screen.SetContent(x, mid, '─', nil, axisStyle)
	}
	for x := 0; x < width; x++ {
		v := float64(samples[start+x])
		if math.IsNaN(v) {
			continue
		}
		v = math.Max(-1, math.Min(1, v))
		y := mid - int(math.Round(v*half))
		a.screen.SetContent(x, y, '•', nil, scopeStyle)
	}
}

func (a *App) drawText(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// Run polls events on a separate goroutine and redraws on a ticker until
// the user quits or ctx is cancelled. The caller owns the screen and calls
// Fini afterwards, which also ends the polling goroutine.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
			if ev == nil {
				return
			}
		}
	}()

	a.Draw()
	for {
		select {
		case <-ctx.Done():
			a.inst.SetActiveNotes(0)
			return ctx.Err()
		case ev := <-eventChan:
			if !a.HandleEvent(ev, time.Now()) {
				return nil
			}
		case now := <-ticker.C:
			a.Tick(now)
		}
	}
}
