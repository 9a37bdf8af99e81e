// Command virtsynth_tui plays the synthesizer from a terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	log "github.com/golang/glog"

	virtsynth "github.com/cbegin/virtsynth-go"
	"github.com/cbegin/virtsynth-go/internal/config"
	"github.com/cbegin/virtsynth-go/internal/keymap"
	"github.com/cbegin/virtsynth-go/internal/panel"
	"github.com/cbegin/virtsynth-go/internal/tui"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to a TOML config file")
		backend      = flag.String("backend", "", "audio backend (overrides config)")
		sampleRate   = flag.Int("sample-rate", 0, "requested sample rate (overrides config)")
		bufferFrames = flag.Int("buffer-frames", 0, "frames per audio buffer (overrides config)")
		layoutFlag   = flag.String("layout", "", "twelve keys for C4..B4 (overrides config)")
		holdMS       = flag.Int("hold-ms", 0, "how long a key press holds its note (overrides config)")
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
	if *holdMS > 0 {
		cfg.Keyboard.HoldMS = *holdMS
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
	audioCfg = tui.AudioConfig(audioCfg)

	scope := panel.NewScope(1024, max(audioCfg.Channels, 1))
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

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Exitf("terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Exitf("terminal: %v", err)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := tui.New(screen, s, keymap.NewHolder(layout, cfg.Hold()), scope)
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error(err)
	}
}
