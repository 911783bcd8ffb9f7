package compiler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/renderd/internal/config"
	"github.com/mediaforge/renderd/internal/logging"
	"github.com/mediaforge/renderd/internal/timeline"
)

// stubResolver passes sources through as local paths, optionally failing
// one of them.
type stubResolver struct {
	failFor string
}

func (s stubResolver) Resolve(ctx context.Context, src, workdir string) (string, error) {
	if s.failFor != "" && src == s.failFor {
		return "", fmt.Errorf("no such asset: %s", src)
	}
	return src, nil
}

// stubConverter records conversions and returns a scripted path.
type stubConverter struct {
	converted string
	calls     int
}

func (s *stubConverter) ConvertSubtitle(ctx context.Context, src, workdir string) string {
	s.calls++
	if s.converted != "" {
		return s.converted
	}
	return src
}

// stubProbe scripts the encoder capability answers.
type stubProbe struct {
	hasEncoder bool
	selfTestOK bool
}

func (p stubProbe) HasEncoder(ctx context.Context, name string) bool { return p.hasEncoder }
func (p stubProbe) SelfTest(ctx context.Context, name string) bool   { return p.selfTestOK }

func newTestCompiler(t *testing.T, cfg config.RenderConfig, probe stubProbe) (*Compiler, *stubConverter) {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)
	subs := &stubConverter{}
	return New(cfg, "ffmpeg", stubResolver{}, subs, probe, logger), subs
}

// filterGraph returns the -filter_complex value from an argument list.
func filterGraph(t *testing.T, args []string) string {
	t.Helper()
	for i, a := range args {
		if a == "-filter_complex" {
			require.Less(t, i+1, len(args))
			return args[i+1]
		}
	}
	return ""
}

func countOccurrences(args []string, token string) int {
	n := 0
	for _, a := range args {
		if a == token {
			n++
		}
	}
	return n
}

func TestCompile_FallbackForUnrecognizedPayload(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"source":"input.mp4","preset":"fast"}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	require.True(t, plan.Fallback)
	assert.Equal(t, float64(10), plan.Duration)
	assert.False(t, plan.UseHardware)

	expected := []string{
		"ffmpeg", "-y", "-hide_banner",
		"-f", "lavfi",
		"-i", "color=c=black:s=1920x1080:d=10",
		"-r", "30",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"/out/render.mp4",
	}
	assert.Equal(t, expected, plan.Args)
}

func TestCompile_FallbackForEmptyTimeline(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"timeline":{"tracks":[{"clips":[]}]}}`))
	require.Equal(t, timeline.PayloadTimeline, payload.Kind)

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	assert.True(t, plan.Fallback)
}

func TestCompile_FallbackWhenEveryClipIsDropped(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":0},
		{"asset":{"type":"audio","src":"/media/b.mp3"},"start":1,"length":-3}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	assert.True(t, plan.Fallback)
}

func TestCompile_SingleVisualClipUsesDirectLabel(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{
		"output": {"codec": "libx264"},
		"tracks": [{"clips":[{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":5}]}]
	}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	assert.False(t, plan.Fallback)
	assert.Equal(t, float64(5), plan.Duration)

	graph := filterGraph(t, plan.Args)
	expected := "[0:v]scale=1920:1080:force_original_aspect_ratio=decrease," +
		"pad=1920:1080:(ow-iw)/2:(oh-ih)/2:color=black," +
		"fps=30,format=yuva420p,setpts=PTS-STARTPTS+0.000000/TB[b0]"
	assert.Equal(t, expected, graph, "single clip must not be concatenated")

	assert.Contains(t, plan.Args, "-map")
	assert.Contains(t, plan.Args, "[b0]")
	assert.NotContains(t, plan.Args, "-c:a", "no audio clips, no audio codec")
	assert.Contains(t, plan.Args, "libx264")
	assert.Contains(t, plan.Args, "medium")
	assert.Equal(t, "/out/render.mp4", plan.Args[len(plan.Args)-1])
	assert.Equal(t, "-shortest", plan.Args[len(plan.Args)-2])
}

func TestCompile_TwoBaseClipsConcatenate(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"video","src":"/media/b.mp4"},"start":3,"length":4},
		{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":3}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	assert.Equal(t, float64(7), plan.Duration)

	graph := filterGraph(t, plan.Args)
	// Ascending-start order: a.mp4 is input 0 despite declaration order.
	assert.Contains(t, graph, "[0:v]")
	assert.Contains(t, graph, "setpts=PTS-STARTPTS+0.000000/TB[b0]")
	assert.Contains(t, graph, "setpts=PTS-STARTPTS+3.000000/TB[b1]")
	assert.Contains(t, graph, "[b0][b1]concat=n=2:v=1:a=0[vbase0]")

	i := indexOf(plan.Args, "/media/a.mp4")
	j := indexOf(plan.Args, "/media/b.mp4")
	require.GreaterOrEqual(t, i, 0)
	require.GreaterOrEqual(t, j, 0)
	assert.Less(t, i, j, "inputs follow timeline order")
}

func TestCompile_AnchoredOverlaySynthesizesCanvas(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"image","src":"/media/logo.png"},"start":2,"length":3,"position":"bottom_right"}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	assert.Equal(t, float64(5), plan.Duration)

	// Images loop a still frame for the clip length.
	assert.Contains(t, plan.Args, "-loop")
	assert.Contains(t, plan.Args, "3.000")

	graph := filterGraph(t, plan.Args)
	assert.Contains(t, graph, "trim=0:3.000000,setpts=PTS-STARTPTS[ov0]")
	assert.Contains(t, graph, "color=c=black:s=1920x1080:r=30:d=5.000[vbase0]")
	assert.Contains(t, graph,
		"[vbase0][ov0]overlay=x='W-w-40':y='H-h-40':enable='gte(t,2.000)*lt(t,5.000)'[vo0]")

	// The synthesized canvas is a filter source, not an input file.
	assert.Equal(t, 1, countOccurrences(plan.Args, "-i"))
}

func TestCompile_OverlayOnTopOfBaseClip(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[
		{"clips":[{"asset":{"type":"video","src":"/media/main.mp4"},"start":0,"length":10}]},
		{"clips":[{"asset":{"type":"image","src":"/media/badge.png"},"start":1,"length":4,"position":"top_left"}]}
	]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)

	graph := filterGraph(t, plan.Args)
	assert.Contains(t, graph,
		"[b0][ov0]overlay=x='40':y='40':enable='gte(t,1.000)*lt(t,5.000)'[vo0]")
	assert.NotContains(t, graph, "color=c=black", "a real base clip needs no canvas")
}

func TestCompile_AudioMix(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"audio","src":"/media/voice.mp3"},"start":0,"length":5},
		{"asset":{"type":"audio","src":"/media/music.mp3","volume":0.5},"start":2,"length":4}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	assert.Equal(t, float64(7), plan.Duration)

	graph := filterGraph(t, plan.Args)
	assert.Contains(t, graph,
		"[0:a]aresample=async=1,volume=1.000,atrim=0:5.000000,asetpts=PTS-STARTPTS,adelay=0|0[a0]")
	assert.Contains(t, graph,
		"[1:a]aresample=async=1,volume=0.500,atrim=0:4.000000,asetpts=PTS-STARTPTS,adelay=2000|2000[a1]")
	assert.Contains(t, graph, "[a0][a1]amix=inputs=2:normalize=0:dropout_transition=0[amix0]")

	assert.Contains(t, plan.Args, "[amix0]")
	assert.Contains(t, plan.Args, "-c:a")
	assert.Contains(t, plan.Args, "aac")
	assert.Contains(t, plan.Args, "192k")
}

func TestCompile_SingleAudioClipSkipsMix(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"audio","src":"/media/voice.mp3"},"start":0,"length":5}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)

	graph := filterGraph(t, plan.Args)
	assert.NotContains(t, graph, "amix")
	assert.Contains(t, plan.Args, "[a0]")
}

func TestCompile_SubtitleBurnInWithPathEscaping(t *testing.T) {
	c, subs := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[
		{"clips":[{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":5}]},
		{"clips":[{"asset":{"type":"subtitle","src":"/media/it's, a:file.srt"},"start":0,"length":5}]}
	]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)

	graph := filterGraph(t, plan.Args)
	assert.Contains(t, graph, `[b0]subtitles=/media/it\'s\, a\:file.srt[vs0]`)
	assert.Contains(t, plan.Args, "[vs0]")
	assert.Zero(t, subs.calls, ".srt burns in without conversion")
}

func TestCompile_SubtitleConversionForUnsupportedFormat(t *testing.T) {
	c, subs := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	subs.converted = "/work/captions.srt"
	payload := timeline.Parse([]byte(`{"tracks":[
		{"clips":[{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":5}]},
		{"clips":[{"asset":{"type":"subtitle","src":"/media/captions.vtt"},"start":0,"length":5}]}
	]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)

	graph := filterGraph(t, plan.Args)
	assert.Contains(t, graph, "subtitles=/work/captions.srt[vs0]")
	assert.Equal(t, 1, subs.calls)
}

func TestCompile_SubtitleOnlyTimelineGetsCanvas(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"subtitle","src":"/media/captions.srt"},"start":0,"length":4}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	assert.False(t, plan.Fallback)

	graph := filterGraph(t, plan.Args)
	assert.Contains(t, graph, "color=c=black:s=1920x1080:r=30:d=4.000[vbase0]")
	assert.Contains(t, graph, "[vbase0]subtitles=/media/captions.srt[vs0]")
	assert.Zero(t, countOccurrences(plan.Args, "-i"), "subtitles are filter arguments, not inputs")
}

func TestCompile_HardwareEncoderSelection(t *testing.T) {
	tests := []struct {
		name       string
		codec      string
		cfg        config.RenderConfig
		probe      stubProbe
		expectedHW bool
	}{
		{
			name:       "default codec with working hardware",
			codec:      "",
			probe:      stubProbe{hasEncoder: true, selfTestOK: true},
			expectedHW: true,
		},
		{
			name:       "hardware requested but self-test fails",
			codec:      "h264_nvenc",
			probe:      stubProbe{hasEncoder: true, selfTestOK: false},
			expectedHW: false,
		},
		{
			name:       "software codec requested",
			codec:      "libx264",
			probe:      stubProbe{hasEncoder: true, selfTestOK: true},
			expectedHW: false,
		},
		{
			name:       "force CPU overrides request",
			codec:      "h264_nvenc",
			cfg:        config.RenderConfig{ForceCPU: true},
			probe:      stubProbe{hasEncoder: true, selfTestOK: true},
			expectedHW: false,
		},
		{
			name:       "force NVENC trusts failing self-test",
			codec:      "libx264",
			cfg:        config.RenderConfig{ForceNVENC: true},
			probe:      stubProbe{hasEncoder: true, selfTestOK: false},
			expectedHW: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCompiler(t, tt.cfg, tt.probe)
			body := `{"tracks":[{"clips":[{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":5}]}]`
			if tt.codec != "" {
				body += `,"output":{"codec":"` + tt.codec + `"}`
			}
			payload := timeline.Parse([]byte(body + `}`))

			plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
			require.NoError(t, err)
			assert.Equal(t, tt.expectedHW, plan.UseHardware)

			if tt.expectedHW {
				assert.Contains(t, plan.Args, "h264_nvenc")
				assert.Contains(t, plan.Args, "p5")
				assert.Contains(t, plan.Args, "6M")
			} else {
				assert.Contains(t, plan.Args, "libx264")
				assert.Contains(t, plan.Args, "medium")
			}
		})
	}
}

func TestCompile_PayloadBitrateOverridesHardwareDefault(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{hasEncoder: true, selfTestOK: true})
	payload := timeline.Parse([]byte(`{
		"output": {"bitrate": "10M"},
		"tracks": [{"clips":[{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":5}]}]
	}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)
	require.True(t, plan.UseHardware)
	assert.Contains(t, plan.Args, "10M")
	assert.NotContains(t, plan.Args, "6M")
}

func TestCompile_RepeatedCompilationIsIdentical(t *testing.T) {
	c, _ := newTestCompiler(t, config.RenderConfig{}, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[
		{"clips":[
			{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":3},
			{"asset":{"type":"video","src":"/media/b.mp4"},"start":3,"length":4}
		]},
		{"clips":[{"asset":{"type":"image","src":"/media/logo.png"},"start":1,"length":2,"position":"top_right"}]},
		{"clips":[{"asset":{"type":"audio","src":"/media/music.mp3"},"start":0,"length":7}]}
	]}`))

	workdir := t.TempDir()
	first, err := c.Compile(context.Background(), payload, workdir, "/out/render.mp4")
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), payload, workdir, "/out/render.mp4")
	require.NoError(t, err)

	assert.Equal(t, first.Args, second.Args, "labels and ordinals must not leak between runs")
}

func TestCompile_ResolveFailureAbortsCompilation(t *testing.T) {
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)
	c := New(config.RenderConfig{}, "ffmpeg",
		stubResolver{failFor: "/media/missing.mp4"}, &stubConverter{}, stubProbe{}, logger)

	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":3},
		{"asset":{"type":"video","src":"/media/missing.mp4"},"start":3,"length":3}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	assert.Error(t, err)
	assert.Nil(t, plan, "no partial plan on resolution failure")
	assert.Contains(t, err.Error(), "/media/missing.mp4")
}

func TestCompile_InputTuningInjectedBeforeEachInput(t *testing.T) {
	cfg := config.RenderConfig{InputQueueSize: 512, ProbeSize: "50M", AnalyzeDuration: "100M"}
	c, _ := newTestCompiler(t, cfg, stubProbe{})
	payload := timeline.Parse([]byte(`{"tracks":[{"clips":[
		{"asset":{"type":"video","src":"/media/a.mp4"},"start":0,"length":3},
		{"asset":{"type":"audio","src":"/media/b.mp3"},"start":0,"length":3}
	]}]}`))

	plan, err := c.Compile(context.Background(), payload, t.TempDir(), "/out/render.mp4")
	require.NoError(t, err)

	assert.Equal(t, 2, countOccurrences(plan.Args, "-thread_queue_size"))
	assert.Equal(t, 2, countOccurrences(plan.Args, "-probesize"))
	assert.Equal(t, 2, countOccurrences(plan.Args, "-analyzeduration"))

	// Tuning sits immediately before its -i token.
	i := indexOf(plan.Args, "-i")
	require.Greater(t, i, 0)
	assert.Equal(t, "100M", plan.Args[i-1])
	assert.Equal(t, "-analyzeduration", plan.Args[i-2])
}

func indexOf(args []string, token string) int {
	for i, a := range args {
		if a == token {
			return i
		}
	}
	return -1
}
