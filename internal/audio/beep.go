package audio

import (
	"errors"

	log "github.com/golang/glog"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// beepStreamer adapts a SampleSource to beep's stereo float64 frames.
type beepStreamer struct {
	src SampleSource
	buf []float32
}

func (s *beepStreamer) Stream(samples [][2]float64) (int, bool) {
	need := len(samples) * 2
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	s.buf = s.buf[:need]
	s.src.Fill(s.buf, 2)
	for i := range samples {
		samples[i][0] = float64(s.buf[2*i])
		samples[i][1] = float64(s.buf[2*i+1])
	}
	return len(samples), true
}

func (s *beepStreamer) Err() error { return nil }

type beepBackend struct {
	cfg     Config
	started bool
	closed  bool
}

func openBeep(cfg Config) (Backend, error) {
	cfg = withDefaults(cfg)
	if cfg.Channels != 2 {
		log.Warningf("audio: beep output is stereo, ignoring %d requested channels", cfg.Channels)
		cfg.Channels = 2
	}
	if err := speaker.Init(beep.SampleRate(cfg.SampleRate), cfg.BufferFrames); err != nil {
		return nil, err
	}
	log.Infof("audio: beep: 2 channels, %d Hz, %d frame buffer", cfg.SampleRate, cfg.BufferFrames)
	return &beepBackend{cfg: cfg}, nil
}

func (b *beepBackend) Name() string      { return "beep" }
func (b *beepBackend) SampleRate() int   { return b.cfg.SampleRate }
func (b *beepBackend) Channels() int     { return 2 }
func (b *beepBackend) BufferFrames() int { return b.cfg.BufferFrames }

func (b *beepBackend) Start(src SampleSource) error {
	if b.started {
		return errors.New("beep backend already started")
	}
	b.started = true
	speaker.Play(&beepStreamer{src: src, buf: make([]float32, 2*b.cfg.BufferFrames)})
	return nil
}

func (b *beepBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	speaker.Clear()
	speaker.Close()
	return nil
}
