package timeline

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mediaforge/renderd/pkg/models"
)

// PayloadKind tags the two accepted schema roots. Anything that is not
// recognizably a timeline routes to the legacy fallback pipeline.
type PayloadKind int

const (
	// PayloadLegacy is any payload that does not match the timeline shape.
	PayloadLegacy PayloadKind = iota
	// PayloadTimeline is {"timeline":{"tracks":[...]}} or {"tracks":[...]}.
	PayloadTimeline
)

// Payload is the validated schema root. Legacy payloads carry only the
// output spec; timeline payloads carry the track list as well.
type Payload struct {
	Kind   PayloadKind
	Output models.OutputSpec
	Tracks []Track
}

// Track is a container of clips. Its declared kind does not gate processing;
// each clip's own asset type decides how it is handled.
type Track struct {
	Type  string
	Clips []Clip
}

// number accepts JSON numbers and numeric strings, matching the loose
// payloads this service has always received.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Not numeric at all; treat as absent rather than failing the clip.
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

// Wire shapes. Tracks and clips are decoded individually so one malformed
// entry is skipped instead of rejecting the whole payload.
type rawEnvelope struct {
	Timeline *rawTracksNode    `json:"timeline"`
	Tracks   []json.RawMessage `json:"tracks"`
	Output   *rawOutput        `json:"output"`
}

type rawTracksNode struct {
	Tracks []json.RawMessage `json:"tracks"`
}

type rawOutput struct {
	Width   number `json:"width"`
	Height  number `json:"height"`
	FPS     number `json:"fps"`
	Codec   string `json:"codec"`
	Bitrate string `json:"bitrate"`
}

type rawTrack struct {
	Type  string            `json:"type"`
	Clips []json.RawMessage `json:"clips"`
}

type rawClip struct {
	Asset    *rawAsset         `json:"asset"`
	Start    number            `json:"start"`
	Length   number            `json:"length"`
	Fit      string            `json:"fit"`
	Opacity  *number           `json:"opacity"`
	Position string            `json:"position"`
	Effects  []json.RawMessage `json:"effects"`
}

type rawAsset struct {
	Type   string  `json:"type"`
	Src    string  `json:"src"`
	Volume *number `json:"volume"`
}

type rawEffect struct {
	Type      string  `json:"type"`
	In        *number `json:"in"`
	Out       *number `json:"out"`
	Direction string  `json:"direction"`
	Duration  *number `json:"duration"`
}

// Parse validates a raw payload into a tagged Payload root. It never fails:
// unparseable or unrecognized payloads come back as PayloadLegacy, which
// compiles to the fallback pipeline downstream.
func Parse(data []byte) *Payload {
	p := &Payload{Kind: PayloadLegacy}
	p.Output.ApplyDefaults()

	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return p
	}

	if env.Output != nil {
		applyOutput(&p.Output, env.Output)
	}

	rawTracks := env.Tracks
	if env.Timeline != nil && tracksLike(env.Timeline.Tracks) {
		rawTracks = env.Timeline.Tracks
	} else if !tracksLike(env.Tracks) {
		return p
	}

	p.Kind = PayloadTimeline
	for _, rt := range rawTracks {
		var t rawTrack
		if err := json.Unmarshal(rt, &t); err != nil {
			continue
		}
		track := Track{Type: t.Type}
		for _, rc := range t.Clips {
			var c rawClip
			if err := json.Unmarshal(rc, &c); err != nil {
				continue
			}
			clip, ok := decodeClip(&c)
			if ok {
				track.Clips = append(track.Clips, clip)
			}
		}
		p.Tracks = append(p.Tracks, track)
	}
	return p
}

// tracksLike reports whether the node looks like [{"clips":[...]}, ...]:
// a non-empty track list where at least one entry carries a clips array.
func tracksLike(tracks []json.RawMessage) bool {
	if len(tracks) == 0 {
		return false
	}
	for _, rt := range tracks {
		var t struct {
			Clips []json.RawMessage `json:"clips"`
		}
		if err := json.Unmarshal(rt, &t); err != nil {
			continue
		}
		if t.Clips != nil {
			return true
		}
	}
	return false
}

func applyOutput(out *models.OutputSpec, raw *rawOutput) {
	if raw.Width > 0 {
		out.Width = int(raw.Width)
	}
	if raw.Height > 0 {
		out.Height = int(raw.Height)
	}
	if raw.FPS > 0 {
		out.FPS = int(raw.FPS)
	}
	if raw.Codec != "" {
		out.Codec = raw.Codec
	}
	if raw.Bitrate != "" {
		out.Bitrate = raw.Bitrate
	}
}

// decodeClip coerces one wire clip into the typed model. Clips without a
// recognizable asset type are dropped; zero or negative lengths are kept
// here and filtered during extraction so each pass applies the same rule.
func decodeClip(c *rawClip) (Clip, bool) {
	if c.Asset == nil {
		return Clip{}, false
	}
	kind, ok := ParseAssetKind(c.Asset.Type)
	if !ok {
		return Clip{}, false
	}

	clip := Clip{
		Src:      c.Asset.Src,
		Kind:     kind,
		Start:    float64(c.Start),
		Length:   float64(c.Length),
		Fit:      ParseFitMode(c.Fit),
		Position: strings.TrimSpace(c.Position),
		Volume:   1.0,
	}
	if c.Opacity != nil {
		v := float64(*c.Opacity)
		clip.Opacity = &v
	}
	if c.Asset.Volume != nil {
		clip.Volume = float64(*c.Asset.Volume)
	}
	for _, re := range c.Effects {
		var e rawEffect
		if err := json.Unmarshal(re, &e); err != nil {
			continue
		}
		if eff, ok := decodeEffect(&e); ok {
			clip.Effects = append(clip.Effects, eff)
		}
	}
	return clip, true
}

func decodeEffect(e *rawEffect) (Effect, bool) {
	switch strings.ToLower(strings.TrimSpace(e.Type)) {
	case "zoom_in":
		return ZoomEffect{}, true
	case "zoom_out":
		return ZoomEffect{Out: true}, true
	case "fade":
		fade := FadeEffect{In: DefaultFadeSeconds, Out: DefaultFadeSeconds}
		if e.In != nil {
			fade.In = float64(*e.In)
		}
		if e.Out != nil {
			fade.Out = float64(*e.Out)
		}
		return fade, true
	case "slide_in", "slide_out":
		slide := SlideEffect{
			Out:       strings.HasSuffix(strings.ToLower(e.Type), "_out"),
			Direction: ParseSlideDirection(e.Direction),
			Duration:  DefaultSlideSeconds,
		}
		if e.Duration != nil && *e.Duration > 0 {
			slide.Duration = float64(*e.Duration)
		}
		return slide, true
	default:
		return nil, false
	}
}
