package virtsynth

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

const arpeggio = `
set("gain", 0.8)
set("attack", 0.01)
set("release", 0.05)
for _, n in ipairs({"C4", "E4", "G4"}) do
  press(n)
  wait(0.1)
  release(n)
end
wait(0.1)
`

func TestRenderArpeggio(t *testing.T) {
	opts := DefaultRenderOptions()
	opts.SampleRate = 16000
	res, err := Render(context.Background(), arpeggio, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Channels != 2 || res.SampleRate != 16000 {
		t.Fatalf("format %d ch %d Hz", res.Channels, res.SampleRate)
	}
	if res.Frames() != 6400 {
		t.Fatalf("Frames() = %d, want 6400", res.Frames())
	}
	a := Analyze(res.Samples, res.Channels)
	if a.Frames != 6400 {
		t.Fatalf("analysis frames = %d", a.Frames)
	}
	if a.Peak <= 0.5 || a.Peak > 0.8+1e-6 {
		t.Fatalf("peak = %v, want (0.5, 0.8]", a.Peak)
	}
	if a.ZeroCrossings == 0 || a.RMS <= 0 {
		t.Fatalf("rendering looks silent: %v", a)
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 2*800)
	for i := 0; i < 800; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*float64(i)/80))
		samples[2*i], samples[2*i+1] = v, -v
	}
	samples[0] = 2 // clipped to full scale

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteWAV(f, samples, 8000, 2, 16); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	dec := wav.NewDecoder(in)
	if !dec.IsValidFile() {
		t.Fatal("decoder rejected the file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if dec.SampleRate != 8000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("header %d Hz %d ch %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	if buf.Data[0] != 32767 {
		t.Fatalf("clipped sample = %d, want 32767", buf.Data[0])
	}
	for i := 1; i < len(samples); i++ {
		got := float64(buf.Data[i]) / 32768
		if math.Abs(got-float64(samples[i])) > 1.0/32768+1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, got, samples[i])
		}
	}
}

func TestWriteWAVRejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := WriteWAV(f, []float32{0, 0}, 8000, 2, 8); err == nil {
		t.Fatal("expected error for 8-bit output")
	}
	if err := WriteWAV(f, []float32{0, 0, 0}, 8000, 2, 16); err == nil {
		t.Fatal("expected error for a partial frame")
	}
}

func TestAnalyzeSquare(t *testing.T) {
	samples := make([]float32, 0, 400)
	for i := 0; i < 200; i++ {
		v := float32(0.5)
		if (i/10)%2 == 1 {
			v = -0.5
		}
		samples = append(samples, v, 0)
	}
	a := Analyze(samples, 2)
	if a.Frames != 200 || math.Abs(a.Peak-0.5) > 1e-9 || math.Abs(a.RMS-0.5) > 1e-9 {
		t.Fatalf("unexpected analysis %v", a)
	}
	if a.ZeroCrossings != 19 {
		t.Fatalf("zero crossings = %d, want 19", a.ZeroCrossings)
	}
}
