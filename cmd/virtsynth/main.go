// Command virtsynth opens a window and plays the synthesizer from the
// computer keyboard.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"strings"

	log "github.com/golang/glog"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	virtsynth "github.com/cbegin/virtsynth-go"
	"github.com/cbegin/virtsynth-go/internal/config"
	"github.com/cbegin/virtsynth-go/internal/keymap"
	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/panel"
)

const (
	windowW    = 960
	windowH    = 640
	minWindowW = 760
	minWindowH = 560

	textScale = 2
	lineH     = 14 * textScale

	scopeSamples = 2048
)

var (
	bgColor     = color.RGBA{24, 26, 34, 255}
	panelColor  = color.RGBA{36, 40, 52, 255}
	borderColor = color.RGBA{70, 76, 96, 255}
	selColor    = color.RGBA{60, 90, 140, 255}
	whiteKey    = color.RGBA{220, 220, 220, 255}
	blackKey    = color.RGBA{40, 40, 40, 255}
	heldKey     = color.RGBA{90, 200, 120, 255}
	waveColor   = color.RGBA{80, 200, 255, 220}
	axisColor   = color.RGBA{40, 44, 58, 255}
)

// Punctuation keys ebiten names by word.
var punctKeys = map[ebiten.Key]rune{
	ebiten.KeyComma:        ',',
	ebiten.KeyPeriod:       '.',
	ebiten.KeySlash:        '/',
	ebiten.KeySemicolon:    ';',
	ebiten.KeyQuote:        '\'',
	ebiten.KeyBracketLeft:  '[',
	ebiten.KeyBracketRight: ']',
	ebiten.KeyMinus:        '-',
	ebiten.KeyEqual:        '=',
}

var arrowKeys = map[ebiten.Key]panel.Arrow{
	ebiten.KeyArrowUp:    panel.Up,
	ebiten.KeyArrowDown:  panel.Down,
	ebiten.KeyArrowLeft:  panel.Left,
	ebiten.KeyArrowRight: panel.Right,
}

type game struct {
	synth  *virtsynth.Synth
	panel  *panel.Panel
	layout keymap.Layout
	scope  *panel.Scope

	keys      []ebiten.Key
	runes     []rune
	scopeBuf  []float32
	scopeImg  *ebiten.Image
	wavePeak  float64
	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(s *virtsynth.Synth, layout keymap.Layout, scope *panel.Scope) *game {
	return &game{
		synth:     s,
		panel:     panel.New(s),
		layout:    layout,
		scope:     scope,
		scopeBuf:  make([]float32, scopeSamples),
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	// The held set is rebuilt from the pressed keys every frame, so a
	// release is heard on the next frame without any hold timeout.
	g.keys = inpututil.AppendPressedKeys(g.keys[:0])
	g.runes = g.runes[:0]
	for _, k := range g.keys {
		if r, ok := keyRune(k); ok {
			g.runes = append(g.runes, r)
		}
	}
	g.synth.SetActiveNotes(g.layout.Set(g.runes))

	for _, k := range inpututil.AppendJustPressedKeys(g.keys[:0]) {
		r, ok := keyRune(k)
		if !ok {
			continue
		}
		if _, isNote := g.layout.Note(r); !isNote {
			g.panel.Rune(r)
		}
	}

	for k, a := range arrowKeys {
		if repeating(k) {
			g.panel.Arrow(a)
		}
	}
	return nil
}

// repeating is true on the first frame of a press and then at a steady
// rate once the key has been held for half a second.
func repeating(k ebiten.Key) bool {
	d := inpututil.KeyPressDuration(k)
	return d == 1 || (d >= 30 && d%4 == 0)
}

func keyRune(k ebiten.Key) (rune, bool) {
	if r, ok := punctKeys[k]; ok {
		return r, true
	}
	name := strings.ToLower(strings.TrimPrefix(k.String(), "Digit"))
	if len(name) != 1 {
		return 0, false
	}
	return rune(name[0]), true
}

type uiLayout struct {
	panel    image.Rectangle
	keyboard image.Rectangle
	scope    image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad = 12
	panelH := 11*lineH + pad
	kbH := 96
	return uiLayout{
		panel:    image.Rect(pad, pad, g.viewW-pad, pad+panelH),
		keyboard: image.Rect(pad, 2*pad+panelH, g.viewW-pad, 2*pad+panelH+kbH),
		scope:    image.Rect(pad, 3*pad+panelH+kbH, g.viewW-pad, g.viewH-pad),
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()
	g.drawPanel(screen, l.panel)
	g.drawKeyboard(screen, l.keyboard)
	g.drawScope(screen, l.scope)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, panelColor)
	drawBorder(screen, rect)
	x, y := rect.Min.X+8, rect.Min.Y+6
	for i, line := range g.panel.Lines() {
		if i == g.panel.Selected() {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+2), float64(y-2), float64(rect.Dx()-4), lineH, selColor)
		}
		g.drawText(screen, line, x, y)
		y += lineH
	}
	g.drawText(screen, "esc quit  arrows edit  1-3 osc  w wave  p phase", x, y)
}

func (g *game) drawKeyboard(screen *ebiten.Image, rect image.Rectangle) {
	active := g.synth.ActiveNotes()
	w := rect.Dx() / int(note.Count)
	for n := note.Note(0); n < note.Count; n++ {
		r := image.Rect(rect.Min.X+int(n)*w, rect.Min.Y, rect.Min.X+int(n+1)*w-4, rect.Max.Y)
		fill := whiteKey
		if strings.Contains(n.String(), "#") {
			fill = blackKey
		}
		if active.Has(n) {
			fill = heldKey
		}
		fillRect(screen, r, fill)
		drawBorder(screen, r)
		g.drawText(screen, string(g.layout.Key(n)), r.Min.X+6, r.Min.Y+6)
		g.drawText(screen, n.String(), r.Min.X+6, r.Max.Y-lineH-4)
	}
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, color.RGBA{0, 0, 0, 255})
	drawBorder(screen, rect)
	inner := rect.Inset(2)
	if inner.Dx() < 2 || inner.Dy() < 4 {
		return
	}
	if g.scopeImg == nil || g.scopeImg.Bounds().Dx() != inner.Dx() || g.scopeImg.Bounds().Dy() != inner.Dy() {
		g.scopeImg = ebiten.NewImage(inner.Dx(), inner.Dy())
	}
	g.scopeImg.Clear()
	g.drawWaveform(g.scopeImg, g.scope.Snapshot(g.scopeBuf), inner.Dx(), inner.Dy())
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func (g *game) drawWaveform(dst *ebiten.Image, samples []float32, width int, height int) {
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(dst, 0, float64(midY), float64(width), 1, axisColor)

	// Auto-gain: fast attack, slow release.
	peak := float32(0)
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		peak = max(peak, s)
	}
	target := max(float64(peak), 0.01)
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	g.wavePeak = max(g.wavePeak, 0.01)
	gain := float64(midY-2) / g.wavePeak

	trigger := panel.Trigger(samples, len(samples)/4)
	visible := max(len(samples)/2, 2)
	prevX := 0
	prevY := midY - int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := min(trigger+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(dst, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX, prevY = px, y
	}
}

func fillRect(screen *ebiten.Image, rect image.Rectangle, c color.Color) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), c)
}

func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y, 1, h, borderColor)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, borderColor)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func main() {
	var (
		configPath   = flag.String("config", "", "path to a TOML config file")
		backend      = flag.String("backend", "", "audio backend (overrides config)")
		sampleRate   = flag.Int("sample-rate", 0, "requested sample rate (overrides config)")
		bufferFrames = flag.Int("buffer-frames", 0, "frames per audio buffer (overrides config)")
		layoutFlag   = flag.String("layout", "", "twelve keys for C4..B4 (overrides config)")
	)
	flag.Parse()
	defer log.Flush()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Exit(err)
	}
	if *layoutFlag != "" {
		cfg.Keyboard.Layout = *layoutFlag
	}
	params, err := cfg.EngineParams()
	if err != nil {
		log.Exit(err)
	}
	layout, err := cfg.Layout()
	if err != nil {
		log.Exit(err)
	}
	audioCfg := cfg.AudioConfig()
	if *backend != "" {
		audioCfg.Backend = *backend
	}
	if *sampleRate > 0 {
		audioCfg.SampleRate = *sampleRate
	}
	if *bufferFrames > 0 {
		audioCfg.BufferFrames = *bufferFrames
	}

	scope := panel.NewScope(scopeSamples, max(audioCfg.Channels, 1))
	s, err := virtsynth.New(
		virtsynth.WithAudioConfig(audioCfg),
		virtsynth.WithParams(params),
		virtsynth.WithSampleTap(scope.Tap),
	)
	if err != nil {
		log.Exit(err)
	}
	defer s.Close()
	scope.SetChannels(s.Channels())

	g := newGame(s, layout, scope)
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle(fmt.Sprintf("virtsynth (%s, %d Hz)", s.Backend(), s.SampleRate()))
	if err := ebiten.RunGame(g); err != nil {
		log.Exit(err)
	}
}
