// Package script renders performances described by Lua scripts through a
// private engine, with note changes landing on buffer boundaries exactly as
// they do in live playback.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/cbegin/virtsynth-go/internal/engine"
	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/osc"
)

// DefaultMaxSeconds bounds the rendered length of a script.
const DefaultMaxSeconds = 600

type Options struct {
	Params       engine.Params
	SampleRate   int
	Channels     int
	BufferFrames int
	MaxSeconds   float64
	// Name labels the chunk in Lua error messages.
	Name string
}

func DefaultOptions() Options {
	return Options{
		Params:       engine.DefaultParams(),
		SampleRate:   48000,
		Channels:     2,
		BufferFrames: 512,
		MaxSeconds:   DefaultMaxSeconds,
		Name:         "script",
	}
}

type Result struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

func (r Result) Frames() int {
	if r.Channels == 0 {
		return 0
	}
	return len(r.Samples) / r.Channels
}

type runner struct {
	opts      Options
	controls  *engine.Controls
	engine    *engine.Engine
	notes     note.Set
	block     []float32
	out       []float32
	maxFrames int
	frames    int
}

// Run executes src and returns everything rendered by its wait calls.
func Run(ctx context.Context, src string, opts Options) (Result, error) {
	if opts.Channels < 1 {
		return Result{}, errors.New("channels must be positive")
	}
	if opts.BufferFrames < 1 {
		return Result{}, errors.New("buffer frames must be positive")
	}
	if opts.MaxSeconds <= 0 {
		opts.MaxSeconds = DefaultMaxSeconds
	}
	if opts.Name == "" {
		opts.Name = "script"
	}
	controls := engine.NewControls(opts.Params)
	eng, err := engine.New(opts.SampleRate, controls)
	if err != nil {
		return Result{}, err
	}
	r := &runner{
		opts:      opts,
		controls:  controls,
		engine:    eng,
		block:     make([]float32, opts.BufferFrames*opts.Channels),
		maxFrames: int(math.Round(opts.MaxSeconds * float64(opts.SampleRate))),
	}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	r.install(L)

	fn, err := L.LoadString(src)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", opts.Name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return Result{}, fmt.Errorf("%s: %w", opts.Name, err)
	}
	return Result{Samples: r.out, SampleRate: opts.SampleRate, Channels: opts.Channels}, nil
}

func (r *runner) install(L *lua.LState) {
	L.SetGlobal("sample_rate", lua.LNumber(r.opts.SampleRate))
	L.SetGlobal("press", L.NewFunction(r.press))
	L.SetGlobal("release", L.NewFunction(r.release))
	L.SetGlobal("notes", L.NewFunction(r.setNotes))
	L.SetGlobal("wait", L.NewFunction(r.wait))
	L.SetGlobal("set", L.NewFunction(r.set))
	L.SetGlobal("osc", L.NewFunction(r.osc))
}

func checkNote(L *lua.LState, i int) note.Note {
	v := L.Get(i)
	var (
		n   note.Note
		err error
	)
	switch v.Type() {
	case lua.LTNumber:
		idx := int(lua.LVAsNumber(v))
		if idx < 0 || idx >= note.Count {
			err = fmt.Errorf("note index %d out of range [0,%d)", idx, note.Count)
		}
		n = note.Note(idx)
	case lua.LTString:
		n, err = note.Parse(lua.LVAsString(v))
	default:
		err = fmt.Errorf("note name or index expected, got %s", v.Type())
	}
	if err != nil {
		L.ArgError(i, err.Error())
	}
	return n
}

// press(note, ...) adds notes to the held set.
func (r *runner) press(L *lua.LState) int {
	for i := 1; i <= L.GetTop(); i++ {
		r.notes = r.notes.With(checkNote(L, i))
	}
	r.controls.Notes.Store(r.notes)
	return 0
}

// release(note, ...) removes notes; with no arguments it releases all.
func (r *runner) release(L *lua.LState) int {
	if L.GetTop() == 0 {
		r.notes = 0
	}
	for i := 1; i <= L.GetTop(); i++ {
		r.notes = r.notes.Without(checkNote(L, i))
	}
	r.controls.Notes.Store(r.notes)
	return 0
}

// notes(mask) replaces the held set with a bitmask, bit i for note i.
func (r *runner) setNotes(L *lua.LState) int {
	mask := L.CheckInt(1)
	if mask < 0 || note.Set(mask)&^note.All != 0 {
		L.ArgError(1, fmt.Sprintf("mask %#x has bits outside the octave", mask))
	}
	r.notes = note.Set(mask)
	r.controls.Notes.Store(r.notes)
	return 0
}

// wait(seconds) renders that much audio.
func (r *runner) wait(L *lua.LState) int {
	sec := float64(L.CheckNumber(1))
	if math.IsNaN(sec) || sec < 0 {
		L.ArgError(1, "duration must be non-negative")
	}
	// Checked in float space: an enormous duration would overflow int.
	want := math.Round(sec * float64(r.opts.SampleRate))
	if math.IsInf(want, 0) || want > float64(r.maxFrames-r.frames) {
		L.RaiseError("render length exceeds %g seconds", r.opts.MaxSeconds)
	}
	frames := int(want)
	ch := r.opts.Channels
	for frames > 0 {
		if err := L.Context().Err(); err != nil {
			L.RaiseError("%v", err)
		}
		n := min(frames, r.opts.BufferFrames)
		buf := r.block[:n*ch]
		r.engine.Fill(buf, ch)
		r.out = append(r.out, buf...)
		r.frames += n
		frames -= n
	}
	return 0
}

// set(name, value) writes one scalar parameter.
func (r *runner) set(L *lua.LState) int {
	name := L.CheckString(1)
	v := float32(L.CheckNumber(2))
	c := r.controls
	switch name {
	case "gain", "master_gain":
		c.MasterGain.Store(v)
	case "attack":
		c.Envelope.Attack.Store(v)
	case "decay":
		c.Envelope.Decay.Store(v)
	case "sustain":
		c.Envelope.Sustain.Store(v)
	case "release":
		c.Envelope.Release.Store(v)
	default:
		L.ArgError(1, fmt.Sprintf("unknown parameter %q (expected gain|attack|decay|sustain|release)", name))
	}
	return 0
}

// osc(index, {waveform=, active=, gain=}) configures oscillator 1..3.
func (r *runner) osc(L *lua.LState) int {
	idx := L.CheckInt(1)
	if idx < 1 || idx > osc.Count {
		L.ArgError(1, fmt.Sprintf("oscillator index must be 1..%d", osc.Count))
	}
	tbl := L.CheckTable(2)
	c := &r.controls.Oscillators[idx-1]
	if v := tbl.RawGetString("waveform"); v != lua.LNil {
		w, err := osc.ParseWaveform(lua.LVAsString(v))
		if err != nil {
			L.ArgError(2, err.Error())
		}
		c.Waveform.Store(w)
	}
	if v := tbl.RawGetString("active"); v != lua.LNil {
		c.Active.Store(lua.LVAsBool(v))
	}
	if v := tbl.RawGetString("gain"); v != lua.LNil {
		if v.Type() != lua.LTNumber {
			L.ArgError(2, "gain must be a number")
		}
		c.Gain.Store(float32(lua.LVAsNumber(v)))
	}
	return 0
}
