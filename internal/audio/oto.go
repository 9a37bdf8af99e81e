package audio

import (
	"errors"
	"time"

	"github.com/ebitengine/oto/v3"
	log "github.com/golang/glog"
)

type otoBackend struct {
	ctx    *oto.Context
	cfg    Config
	player *oto.Player
}

// openOto creates an oto context. oto allows one context per process, so
// this backend cannot be combined with ebiten or beep.
func openOto(cfg Config) (Backend, error) {
	cfg = withDefaults(cfg)
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(cfg.BufferFrames) * time.Second / time.Duration(cfg.SampleRate),
	})
	if err != nil {
		return nil, err
	}
	<-ready
	log.Infof("audio: oto: %d channels, %d Hz, %d frame buffer", cfg.Channels, cfg.SampleRate, cfg.BufferFrames)
	return &otoBackend{ctx: ctx, cfg: cfg}, nil
}

func (b *otoBackend) Name() string      { return "oto" }
func (b *otoBackend) SampleRate() int   { return b.cfg.SampleRate }
func (b *otoBackend) Channels() int     { return b.cfg.Channels }
func (b *otoBackend) BufferFrames() int { return b.cfg.BufferFrames }

func (b *otoBackend) Start(src SampleSource) error {
	if b.player != nil {
		return errors.New("oto backend already started")
	}
	b.player = b.ctx.NewPlayer(NewStreamReader(src, b.cfg.Channels))
	b.player.Play()
	return nil
}

func (b *otoBackend) Close() error {
	if b.player == nil {
		return nil
	}
	b.player.Pause()
	err := b.player.Close()
	b.player = nil
	return err
}
