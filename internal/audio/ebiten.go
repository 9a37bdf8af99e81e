package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/golang/glog"
	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide ebiten context. ebiten allows
// only one, so later callers must ask for the same rate.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

type ebitenBackend struct {
	ctx          *ebitaudio.Context
	sampleRate   int
	bufferFrames int
	player       *ebitaudio.Player
}

// openEbiten always negotiates stereo; ebiten players are two-channel.
func openEbiten(cfg Config) (Backend, error) {
	cfg = withDefaults(cfg)
	if cfg.Channels != 2 {
		log.Warningf("audio: ebiten output is stereo, ignoring %d requested channels", cfg.Channels)
	}
	ctx, err := sharedAudioContext(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	log.Infof("audio: ebiten: 2 channels, %d Hz, %d frame buffer", cfg.SampleRate, cfg.BufferFrames)
	return &ebitenBackend{ctx: ctx, sampleRate: cfg.SampleRate, bufferFrames: cfg.BufferFrames}, nil
}

func (b *ebitenBackend) Name() string      { return "ebiten" }
func (b *ebitenBackend) SampleRate() int   { return b.sampleRate }
func (b *ebitenBackend) Channels() int     { return 2 }
func (b *ebitenBackend) BufferFrames() int { return b.bufferFrames }

func (b *ebitenBackend) Start(src SampleSource) error {
	if b.player != nil {
		return errors.New("ebiten backend already started")
	}
	pl, err := b.ctx.NewPlayerF32(NewStreamReader(src, 2))
	if err != nil {
		return err
	}
	pl.SetBufferSize(time.Duration(b.bufferFrames) * time.Second / time.Duration(b.sampleRate))
	pl.Play()
	b.player = pl
	return nil
}

func (b *ebitenBackend) Close() error {
	if b.player == nil {
		return nil
	}
	b.player.Pause()
	err := b.player.Close()
	b.player = nil
	return err
}
