// Command virtsynth_render plays a Lua note script through the synthesizer
// offline and writes the result as a WAV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/golang/glog"

	virtsynth "github.com/cbegin/virtsynth-go"
	"github.com/cbegin/virtsynth-go/internal/config"
)

// A C major arpeggio, used when no script is given.
const defaultScript = `
for _, n in ipairs({"C4", "E4", "G4", "B4"}) do
  press(n)
  wait(0.25)
end
wait(0.5)
release()
wait(0.5)
`

func main() {
	var (
		scriptPath = flag.String("script", "", "path to a Lua note script")
		inline     = flag.String("e", "", "inline Lua note script")
		outPath    = flag.String("out", "out.wav", "output WAV file")
		configPath = flag.String("config", "", "path to a TOML config file")
		sampleRate = flag.Int("sample-rate", 0, "output sample rate (overrides config)")
		channels   = flag.Int("channels", 0, "output channels (overrides config)")
		bits       = flag.Int("bits", 16, "output bit depth: 16|24|32")
		maxSeconds = flag.Float64("max-seconds", virtsynth.DefaultRenderOptions().MaxSeconds, "longest rendering allowed")
	)
	flag.Parse()
	defer log.Flush()

	src, name, err := resolveScript(*scriptPath, *inline)
	if err != nil {
		log.Exit(err)
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Exit(err)
	}
	params, err := cfg.EngineParams()
	if err != nil {
		log.Exit(err)
	}

	opts := virtsynth.DefaultRenderOptions()
	opts.Params = params
	format := cfg.RenderAudio()
	opts.SampleRate = format.SampleRate
	opts.Channels = format.Channels
	opts.BufferFrames = format.BufferFrames
	opts.MaxSeconds = *maxSeconds
	opts.Name = name
	if *sampleRate > 0 {
		opts.SampleRate = *sampleRate
	}
	if *channels > 0 {
		opts.Channels = *channels
	}

	res, err := virtsynth.Render(context.Background(), src, opts)
	if err != nil {
		log.Exitf("render %s: %v", name, err)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Exit(err)
	}
	if err := virtsynth.WriteWAV(f, res.Samples, res.SampleRate, res.Channels, *bits); err != nil {
		f.Close()
		log.Exitf("write %s: %v", *outPath, err)
	}
	if err := f.Close(); err != nil {
		log.Exit(err)
	}
	log.Infof("wrote %s: %d frames, %d Hz, %d ch, %d bit", *outPath, res.Frames(), res.SampleRate, res.Channels, *bits)
	fmt.Println(virtsynth.Analyze(res.Samples, res.Channels))
}

func resolveScript(path string, inline string) (string, string, error) {
	if strings.TrimSpace(inline) != "" {
		return inline, "inline", nil
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		return string(data), filepath.Base(path), nil
	}
	return defaultScript, "default", nil
}
