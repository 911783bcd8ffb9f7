// Package compiler translates a validated timeline payload into one
// fully-formed ffmpeg invocation: input descriptors, a filter graph,
// stream mappings, and encoder parameters. Compilation is synchronous and
// pure apart from asset resolution, the encoder self-test, and the
// subtitle-format side invocation, all of which go through injected
// collaborators.
package compiler

import (
	"context"
	"strings"

	"github.com/mediaforge/renderd/internal/config"
	"github.com/mediaforge/renderd/internal/encoder"
	"github.com/mediaforge/renderd/internal/logging"
	"github.com/mediaforge/renderd/internal/timeline"
	"github.com/mediaforge/renderd/pkg/models"
)

// Resolver maps a clip source reference to a locally readable path.
type Resolver interface {
	Resolve(ctx context.Context, src, workdir string) (string, error)
}

// SubtitleConverter converts an incompatible caption file, returning the
// original path unchanged on failure.
type SubtitleConverter interface {
	ConvertSubtitle(ctx context.Context, src, workdir string) string
}

// Compiler builds render plans. It holds only read-only configuration and
// collaborators, so one instance serves concurrent requests.
type Compiler struct {
	cfg      config.RenderConfig
	ffmpeg   string
	resolver Resolver
	subs     SubtitleConverter
	probe    encoder.Probe
	log      *logging.Logger
}

// New creates a Compiler. ffmpegPath must already be resolved (engine.New
// fails fast when the binary is missing).
func New(cfg config.RenderConfig, ffmpegPath string, resolver Resolver, subs SubtitleConverter, probe encoder.Probe, log *logging.Logger) *Compiler {
	return &Compiler{
		cfg:      cfg,
		ffmpeg:   ffmpegPath,
		resolver: resolver,
		subs:     subs,
		probe:    probe,
		log:      log,
	}
}

// Plan is one executable engine invocation.
type Plan struct {
	Args        []string
	Fallback    bool
	UseHardware bool
	Duration    float64
}

// run carries the mutable state of one compilation: the input list, the
// label allocator and the filter statements. Discarded when Compile
// returns.
type run struct {
	c       *Compiler
	out     models.OutputSpec
	workdir string
	inputs  *inputList
	labels  *labelAllocator
	filters []string
	total   float64
}

// Compile builds the argument list for a payload. Payloads that are not
// timeline-shaped, or timelines with no usable clips, compile to the
// deterministic fallback pipeline; asset resolution failure aborts the
// whole compilation with no partial graph.
func (c *Compiler) Compile(ctx context.Context, payload *timeline.Payload, workdir, outPath string) (*Plan, error) {
	out := payload.Output
	out.ApplyDefaults()

	if payload.Kind != timeline.PayloadTimeline {
		c.log.Info("payload not timeline-shaped, using fallback pipeline")
		return c.fallbackPlan(out, outPath), nil
	}

	visual := payload.VisualClips()
	audio := payload.AudioClips()
	subs := payload.SubtitleClips()

	if len(visual) == 0 && len(audio) == 0 && len(subs) == 0 {
		c.log.Info("timeline has no usable clips, using fallback pipeline")
		return c.fallbackPlan(out, outPath), nil
	}

	r := &run{
		c:       c,
		out:     out,
		workdir: workdir,
		inputs:  newInputList(&c.cfg),
		labels:  newLabelAllocator(),
		total:   payload.Duration(),
	}

	videoLabel, err := r.buildVideoGraph(ctx, visual, len(subs) > 0)
	if err != nil {
		return nil, err
	}

	audioLabel, err := r.buildAudioMix(ctx, audio)
	if err != nil {
		return nil, err
	}

	if videoLabel != "" && len(subs) > 0 {
		videoLabel, err = r.burnSubtitles(ctx, subs[0], videoLabel)
		if err != nil {
			return nil, err
		}
	}

	useHW := c.selectEncoder(ctx, out.Codec)
	args := r.assemble(videoLabel, audioLabel, useHW, outPath)

	c.log.WithField("hardware", useHW).
		Infof("compiled timeline: %d visual, %d audio, %d subtitle clips, duration %.2fs",
			len(visual), len(audio), len(subs), r.total)

	return &Plan{
		Args:        args,
		UseHardware: useHW,
		Duration:    r.total,
	}, nil
}

// selectEncoder decides the codec path. The hardware path needs the
// payload (or the force flag) to ask for the hardware codec, the encoder
// compiled into the engine, and a passing self-test unless force-trusted.
func (c *Compiler) selectEncoder(ctx context.Context, requestedCodec string) bool {
	requested := strings.EqualFold(requestedCodec, encoder.HardwareEncoder) || c.cfg.ForceNVENC
	return encoder.UseHardware(ctx, encoder.Options{
		ForceCPU:          c.cfg.ForceCPU,
		ForceHardware:     c.cfg.ForceNVENC,
		HardwareRequested: requested,
	}, c.probe)
}
