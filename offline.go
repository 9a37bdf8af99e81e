package virtsynth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	timestats "github.com/cwbudde/algo-dsp/stats/time"
	"github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"

	intscript "github.com/cbegin/virtsynth-go/internal/script"
)

type (
	RenderOptions = intscript.Options
	Rendering     = intscript.Result
)

func DefaultRenderOptions() RenderOptions { return intscript.DefaultOptions() }

// Render runs a Lua performance script against a private engine and returns
// the interleaved samples it produced. See package internal/script for the
// script API.
func Render(ctx context.Context, script string, opts RenderOptions) (Rendering, error) {
	return intscript.Run(ctx, script, opts)
}

// WriteWAV encodes interleaved samples as integer PCM at 16, 24 or 32 bits.
// Samples are clipped to [-1, 1).
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate, channels, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d (expected 16, 24 or 32)", bitDepth)
	}
	if sampleRate <= 0 || channels <= 0 {
		return errors.New("sampleRate and channels must be positive")
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%d samples is not a whole number of %d-channel frames", len(samples), channels)
	}
	top := 1 - math.Ldexp(1, 1-bitDepth)
	buf := &audio.FloatBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]float64, len(samples)),
	}
	for i, s := range samples {
		v := float64(s)
		if math.IsNaN(v) {
			v = 0
		}
		buf.Data[i] = math.Max(-1, math.Min(top, v))
	}
	if err := transforms.PCMScale(buf, bitDepth); err != nil {
		return fmt.Errorf("scale to %d-bit PCM: %w", bitDepth, err)
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, 1)
	if err := enc.Write(buf.AsIntBuffer()); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

// Analysis summarises the first channel of a rendering.
type Analysis struct {
	Frames        int
	Peak          float64
	PeakDB        float64
	RMS           float64
	RMSDB         float64
	DC            float64
	CrestFactor   float64
	ZeroCrossings int
}

func Analyze(samples []float32, channels int) Analysis {
	if channels < 1 {
		channels = 1
	}
	mono := make([]float64, 0, len(samples)/channels)
	for i := 0; i < len(samples); i += channels {
		mono = append(mono, float64(samples[i]))
	}
	st := timestats.Calculate(mono)
	return Analysis{
		Frames:        st.Length,
		Peak:          st.Peak,
		PeakDB:        st.Peak_dB,
		RMS:           st.RMS,
		RMSDB:         st.RMS_dB,
		DC:            st.DC,
		CrestFactor:   st.CrestFactor,
		ZeroCrossings: st.ZeroCrossings,
	}
}

func (a Analysis) String() string {
	return fmt.Sprintf("frames=%d peak=%.4f (%.1f dBFS) rms=%.4f (%.1f dBFS) dc=%.5f crest=%.2f zero-crossings=%d",
		a.Frames, a.Peak, a.PeakDB, a.RMS, a.RMSDB, a.DC, a.CrestFactor, a.ZeroCrossings)
}
