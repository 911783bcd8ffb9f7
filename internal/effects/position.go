package effects

import (
	"fmt"
	"strings"

	"github.com/mediaforge/renderd/internal/timeline"
)

// Named anchors keep a 40 px margin from the canvas edge. Expressions use
// ffmpeg overlay variables: W/H are the base dimensions, w/h the overlay's.
var anchorTable = map[string][2]string{
	"top_left":      {"40", "40"},
	"top_right":     {"W-w-40", "40"},
	"bottom_left":   {"40", "H-h-40"},
	"bottom_right":  {"W-w-40", "H-h-40"},
	"center":        {"(W-w)/2", "(H-h)/2"},
	"top_center":    {"(W-w)/2", "40"},
	"bottom_center": {"(W-w)/2", "H-h-40"},
	"left_center":   {"40", "(H-h)/2"},
	"right_center":  {"W-w-40", "(H-h)/2"},
}

// AnchorXY returns the rest-position overlay expressions for a named
// anchor. Unknown or empty anchors center the overlay.
func AnchorXY(position string) (x, y string) {
	if xy, ok := anchorTable[strings.ToLower(strings.TrimSpace(position))]; ok {
		return xy[0], xy[1]
	}
	return "(W-w)/2", "(H-h)/2"
}

// OverlayXY returns the overlay position expressions for an anchored clip.
// Without a slide effect these are the static anchor coordinates. With one,
// the affected axis becomes a time-varying expression: slide-in interpolates
// from off-canvas to the rest position over the effect duration measured
// from the clip's start on the master clock; slide-out leaves the rest
// position over the final duration seconds.
func OverlayXY(clip *timeline.Clip) (x, y string) {
	x, y = AnchorXY(clip.Position)
	slide, ok := firstSlide(clip.Effects)
	if !ok {
		return x, y
	}

	dur := slide.Duration
	if dur > clip.Length {
		dur = clip.Length
	}
	if dur <= 0 {
		return x, y
	}

	if slide.Out {
		// progress ramps 0..1 over [end-dur, end)
		from := clip.End() - dur
		p := fmt.Sprintf("(t-%.3f)/%.3f", from, dur)
		switch slide.Direction {
		case timeline.SlideLeft:
			x = fmt.Sprintf("if(gt(t,%.3f),(%s)-((%s)+w)*%s,%s)", from, x, x, p, x)
		case timeline.SlideRight:
			x = fmt.Sprintf("if(gt(t,%.3f),(%s)+(W-(%s))*%s,%s)", from, x, x, p, x)
		case timeline.SlideUp:
			y = fmt.Sprintf("if(gt(t,%.3f),(%s)-((%s)+h)*%s,%s)", from, y, y, p, y)
		case timeline.SlideDown:
			y = fmt.Sprintf("if(gt(t,%.3f),(%s)+(H-(%s))*%s,%s)", from, y, y, p, y)
		}
		return x, y
	}

	// progress ramps 0..1 over [start, start+dur)
	p := fmt.Sprintf("(t-%.3f)/%.3f", clip.Start, dur)
	switch slide.Direction {
	case timeline.SlideLeft:
		x = fmt.Sprintf("if(lt(t,%.3f),-w+((%s)+w)*%s,%s)", clip.Start+dur, x, p, x)
	case timeline.SlideRight:
		x = fmt.Sprintf("if(lt(t,%.3f),W-(W-(%s))*%s,%s)", clip.Start+dur, x, p, x)
	case timeline.SlideUp:
		y = fmt.Sprintf("if(lt(t,%.3f),H-(H-(%s))*%s,%s)", clip.Start+dur, y, p, y)
	case timeline.SlideDown:
		y = fmt.Sprintf("if(lt(t,%.3f),-h+((%s)+h)*%s,%s)", clip.Start+dur, y, p, y)
	}
	return x, y
}
