package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mediaforge/renderd/internal/effects"
	"github.com/mediaforge/renderd/internal/timeline"
)

// overlay is a prepared overlay stream waiting to be composited.
type overlay struct {
	label      string
	x, y       string
	start, end float64
}

// buildVideoGraph compiles the per-clip chains, composes the base sequence
// and the overlays, and returns the final video label ("" when the
// timeline carries no video at all). needCanvas forces a synthesized base
// even without overlays, so subtitles have something to burn into.
func (r *run) buildVideoGraph(ctx context.Context, clips []timeline.Clip, needCanvas bool) (string, error) {
	var baseLabels []string
	var overlays []overlay

	for i := range clips {
		clip := &clips[i]
		path, err := r.c.resolver.Resolve(ctx, clip.Src, r.workdir)
		if err != nil {
			return "", fmt.Errorf("resolving visual clip %q: %w", clip.Src, err)
		}

		ordinal, err := r.addVisualInput(clip, path)
		if err != nil {
			return "", err
		}

		stages := r.visualChain(clip)

		if clip.Anchored() {
			// Overlay streams restart at zero so their frames line up with
			// the enable window on the master clock.
			stages = append(stages,
				fmt.Sprintf("trim=0:%.6f", clip.Length),
				"setpts=PTS-STARTPTS",
			)
			label := r.labels.next("ov")
			r.filters = append(r.filters, fmt.Sprintf("[%d:v]%s[%s]", ordinal, strings.Join(stages, ","), label))

			x, y := effects.OverlayXY(clip)
			overlays = append(overlays, overlay{
				label: label,
				x:     x,
				y:     y,
				start: clip.Start,
				end:   clip.End(),
			})
			continue
		}

		stages = append(stages, fmt.Sprintf("setpts=PTS-STARTPTS+%.6f/TB", clip.Start))
		label := r.labels.next("b")
		r.filters = append(r.filters, fmt.Sprintf("[%d:v]%s[%s]", ordinal, strings.Join(stages, ","), label))
		baseLabels = append(baseLabels, label)
	}

	base := r.composeBase(baseLabels, len(overlays) > 0 || needCanvas)
	if base == "" {
		return "", nil
	}

	return r.composeOverlays(base, overlays), nil
}

// addVisualInput registers the clip's input descriptor. Images loop a
// single frame for the clip length; videos are trimmed from source offset
// zero (source-internal trim-in is not supported).
func (r *run) addVisualInput(clip *timeline.Clip, path string) (int, error) {
	if isImagePath(path) {
		return r.inputs.add("-loop", "1", "-t", fmt.Sprintf("%.3f", clip.Length), "-i", path)
	}
	return r.inputs.add("-ss", "0", "-t", fmt.Sprintf("%.3f", clip.Length), "-i", path)
}

// visualChain builds the shared per-clip stages: aspect-preserving scale,
// center pad to the canvas, frame-rate normalization, alpha-capable pixel
// format, optional opacity, then the clip's effects.
func (r *run) visualChain(clip *timeline.Clip) []string {
	aspect := "decrease"
	if clip.Fit == timeline.FitContain {
		aspect = "increase"
	}

	stages := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=%s", r.out.Width, r.out.Height, aspect),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", r.out.Width, r.out.Height),
		fmt.Sprintf("fps=%d", r.out.FPS),
		"format=yuva420p",
	}

	if clip.Opacity != nil {
		alpha := *clip.Opacity
		if alpha < 0 {
			alpha = 0
		}
		if alpha > 1 {
			alpha = 1
		}
		stages = append(stages, fmt.Sprintf("colorchannelmixer=aa=%.3f", alpha))
	}

	return append(stages, effects.ChainStages(clip, r.out.Width, r.out.Height, r.out.FPS)...)
}

// composeBase turns the base segments into one continuous stream: a single
// segment is used directly, multiple are concatenated in ascending-start
// order, and zero segments synthesize a black canvas (a filter-graph color
// source, so no input ordinal is consumed) when something must be
// composited on top.
func (r *run) composeBase(baseLabels []string, needCanvas bool) string {
	switch {
	case len(baseLabels) == 1:
		return baseLabels[0]
	case len(baseLabels) > 1:
		var refs strings.Builder
		for _, l := range baseLabels {
			refs.WriteString("[" + l + "]")
		}
		label := r.labels.next("vbase")
		r.filters = append(r.filters, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[%s]", refs.String(), len(baseLabels), label))
		return label
	case needCanvas:
		label := r.labels.next("vbase")
		r.filters = append(r.filters, fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%.3f[%s]",
			r.out.Width, r.out.Height, r.out.FPS, r.total, label))
		return label
	default:
		return ""
	}
}

// composeOverlays composites overlays sequentially in extraction order,
// each gated to its [start, end) visibility window on the master clock.
func (r *run) composeOverlays(base string, overlays []overlay) string {
	cur := base
	for _, ov := range overlays {
		next := r.labels.next("vo")
		r.filters = append(r.filters, fmt.Sprintf(
			"[%s][%s]overlay=x='%s':y='%s':enable='gte(t,%.3f)*lt(t,%.3f)'[%s]",
			cur, ov.label, ov.x, ov.y, ov.start, ov.end, next))
		cur = next
	}
	return cur
}

func isImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}
