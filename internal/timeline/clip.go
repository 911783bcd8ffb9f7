package timeline

import "strings"

// AssetKind is the closed set of clip categories the compiler understands.
type AssetKind int

const (
	AssetVideo AssetKind = iota
	AssetImage
	AssetAudio
	AssetSubtitle
)

// String returns the wire name of the asset kind.
func (k AssetKind) String() string {
	switch k {
	case AssetVideo:
		return "video"
	case AssetImage:
		return "image"
	case AssetAudio:
		return "audio"
	case AssetSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// ParseAssetKind maps a payload type tag to an AssetKind. Matching is
// case-insensitive; unknown tags report ok=false and the clip is skipped.
func ParseAssetKind(s string) (AssetKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video":
		return AssetVideo, true
	case "image":
		return AssetImage, true
	case "audio":
		return AssetAudio, true
	case "subtitle":
		return AssetSubtitle, true
	default:
		return 0, false
	}
}

// Visual reports whether the kind participates in the video graph.
func (k AssetKind) Visual() bool {
	return k == AssetVideo || k == AssetImage
}

// FitMode controls how a visual clip is scaled onto the canvas.
type FitMode int

const (
	// FitCover scales down to fit inside the canvas, then pads.
	FitCover FitMode = iota
	// FitContain scales up to cover the canvas, then pads.
	FitContain
)

// ParseFitMode maps a payload fit tag to a FitMode, defaulting to cover.
func ParseFitMode(s string) FitMode {
	if strings.EqualFold(strings.TrimSpace(s), "contain") {
		return FitContain
	}
	return FitCover
}

// Clip is one scheduled media fragment with source, placement and optional
// visual treatment. Start and Length are seconds on the master timeline.
type Clip struct {
	Src      string
	Kind     AssetKind
	Start    float64
	Length   float64
	Fit      FitMode
	Opacity  *float64 // nil when unset
	Volume   float64  // linear gain, 1.0 when unset
	Position string   // named anchor, "" when unset
	Effects  []Effect
}

// Anchored reports whether the clip is composited as an overlay rather than
// joining the base sequence.
func (c *Clip) Anchored() bool {
	return c.Position != ""
}

// End returns the clip's end position on the master timeline.
func (c *Clip) End() float64 {
	return c.Start + c.Length
}

// Effect is a closed tagged variant of the per-clip effect descriptors.
type Effect interface {
	isEffect()
}

// ZoomEffect is a slow per-frame zoom recentered on the frame center.
type ZoomEffect struct {
	Out bool // zoom_out shrinks, zoom_in grows
}

// FadeEffect fades the clip in from black and out to black.
type FadeEffect struct {
	In  float64 // seconds, default 0.5
	Out float64 // seconds, default 0.5
}

// SlideDirection is the axis and sign of a slide effect.
type SlideDirection int

const (
	SlideUp SlideDirection = iota
	SlideDown
	SlideLeft
	SlideRight
)

// ParseSlideDirection maps a payload direction tag, defaulting to left.
func ParseSlideDirection(s string) SlideDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return SlideUp
	case "down":
		return SlideDown
	case "right":
		return SlideRight
	default:
		return SlideLeft
	}
}

// SlideEffect moves an overlay on or off canvas over Duration seconds.
// It only affects overlay position expressions, never base-sequence clips.
type SlideEffect struct {
	Out       bool // slide_out exits, slide_in enters
	Direction SlideDirection
	Duration  float64 // seconds, default 1.0
}

func (ZoomEffect) isEffect()  {}
func (FadeEffect) isEffect()  {}
func (SlideEffect) isEffect() {}

// Effect defaults
const (
	DefaultFadeSeconds  = 0.5
	DefaultSlideSeconds = 1.0
)
