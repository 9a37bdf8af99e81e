package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/golang/glog"
)

// NullBackend pulls buffers in real time and discards them. It needs no
// device, so it serves headless hosts and tests.
type NullBackend struct {
	cfg    Config
	frames atomic.Int64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func openNull(cfg Config) (Backend, error) {
	cfg = withDefaults(cfg)
	log.Infof("audio: null: %d channels, %d Hz, %d frame buffer", cfg.Channels, cfg.SampleRate, cfg.BufferFrames)
	return &NullBackend{cfg: cfg}, nil
}

func (b *NullBackend) Name() string      { return "null" }
func (b *NullBackend) SampleRate() int   { return b.cfg.SampleRate }
func (b *NullBackend) Channels() int     { return b.cfg.Channels }
func (b *NullBackend) BufferFrames() int { return b.cfg.BufferFrames }

// Frames reports how many frames have been pulled from the source.
func (b *NullBackend) Frames() int64 { return b.frames.Load() }

func (b *NullBackend) Start(src SampleSource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		return errors.New("null backend already started")
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	period := time.Duration(b.cfg.BufferFrames) * time.Second / time.Duration(b.cfg.SampleRate)
	buf := make([]float32, b.cfg.BufferFrames*b.cfg.Channels)
	go b.run(src, buf, period)
	return nil
}

func (b *NullBackend) run(src SampleSource, buf []float32, period time.Duration) {
	defer close(b.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		src.Fill(buf, b.cfg.Channels)
		b.frames.Add(int64(b.cfg.BufferFrames))
		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}
	}
}

func (b *NullBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop == nil {
		return nil
	}
	select {
	case <-b.stop:
	default:
		close(b.stop)
	}
	<-b.done
	return nil
}
