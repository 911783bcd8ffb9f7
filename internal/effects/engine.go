// Package effects turns per-clip effect descriptors into filter-chain
// fragments and overlay position expressions. Effects apply in a fixed
// order regardless of how the payload declared them: zoom first, then
// fade, then slide. Only the first descriptor of each kind is honored.
package effects

import (
	"fmt"

	"github.com/mediaforge/renderd/internal/timeline"
)

// Zoom ramps linearly per frame and is clamped so a long clip cannot zoom
// past readable bounds.
const (
	zoomRatePerFrame = 0.0005
	zoomMax          = 1.2
	zoomMin          = 0.9
)

// ChainStages returns the filter stages contributed by the clip's effects,
// ready to be appended to its per-clip chain. Slide effects contribute no
// stage here; they shape the overlay position expression instead (see
// OverlayXY). For base-sequence clips a slide descriptor therefore has no
// consuming stage and is ignored.
func ChainStages(clip *timeline.Clip, width, height, fps int) []string {
	var stages []string

	if zoom, ok := firstZoom(clip.Effects); ok {
		stages = append(stages, zoomStage(zoom, clip.Length, width, height, fps))
	}
	if fade, ok := firstFade(clip.Effects); ok {
		stages = append(stages, fadeStages(fade, clip.Length)...)
	}
	return stages
}

// zoomStage builds a zoompan stage: scale factor 1.0 at frame 0, then a
// linear ramp whose sign follows the zoom direction, recentered on the
// frame center every frame.
func zoomStage(zoom timeline.ZoomEffect, length float64, width, height, fps int) string {
	frames := int(float64(fps) * length)
	if frames < 1 {
		frames = 1
	}
	var expr string
	if zoom.Out {
		expr = fmt.Sprintf("max(1-%.6f*frame,%.3f)", zoomRatePerFrame, zoomMin)
	} else {
		expr = fmt.Sprintf("min(1+%.6f*frame,%.3f)", zoomRatePerFrame, zoomMax)
	}
	return fmt.Sprintf(
		"zoompan=z='%s':d=%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=%dx%d:fps=%d",
		expr, frames, width, height, fps)
}

// fadeStages prepends a fade-in from t=0 and appends a fade-out ending at
// the clip's end. The alpha flag keeps transparency intact so faded
// overlays reveal the base instead of turning black.
func fadeStages(fade timeline.FadeEffect, length float64) []string {
	var stages []string
	if fade.In > 0 {
		stages = append(stages, fmt.Sprintf("fade=t=in:st=0:d=%.3f:alpha=1", fade.In))
	}
	if fade.Out > 0 {
		st := length - fade.Out
		if st < 0 {
			st = 0
		}
		stages = append(stages, fmt.Sprintf("fade=t=out:st=%.3f:d=%.3f:alpha=1", st, fade.Out))
	}
	return stages
}

func firstZoom(effects []timeline.Effect) (timeline.ZoomEffect, bool) {
	for _, e := range effects {
		if zoom, ok := e.(timeline.ZoomEffect); ok {
			return zoom, true
		}
	}
	return timeline.ZoomEffect{}, false
}

func firstFade(effects []timeline.Effect) (timeline.FadeEffect, bool) {
	for _, e := range effects {
		if fade, ok := e.(timeline.FadeEffect); ok {
			return fade, true
		}
	}
	return timeline.FadeEffect{}, false
}

func firstSlide(effects []timeline.Effect) (timeline.SlideEffect, bool) {
	for _, e := range effects {
		if slide, ok := e.(timeline.SlideEffect); ok {
			return slide, true
		}
	}
	return timeline.SlideEffect{}, false
}
