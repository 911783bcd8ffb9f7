package timeline

import "sort"

// Extraction flattens the track list into three independently ordered clip
// sequences. Track kind is ignored on purpose: a clip tagged audio inside a
// "video" track is still an audio clip. Clips with length <= 0 are silently
// dropped. Each sequence is stable-sorted ascending by start.

// VisualClips returns the video and image clips in render order.
func (p *Payload) VisualClips() []Clip {
	return p.extract(func(k AssetKind) bool { return k.Visual() })
}

// AudioClips returns the audio clips in mix order.
func (p *Payload) AudioClips() []Clip {
	return p.extract(func(k AssetKind) bool { return k == AssetAudio })
}

// SubtitleClips returns the subtitle clips; only the first is burned in.
func (p *Payload) SubtitleClips() []Clip {
	return p.extract(func(k AssetKind) bool { return k == AssetSubtitle })
}

func (p *Payload) extract(match func(AssetKind) bool) []Clip {
	var clips []Clip
	for _, track := range p.Tracks {
		for _, clip := range track.Clips {
			if !match(clip.Kind) {
				continue
			}
			if clip.Length <= 0 {
				continue
			}
			clips = append(clips, clip)
		}
	}
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].Start < clips[j].Start
	})
	return clips
}

// Duration returns the total timeline duration: the max clip end across all
// usable clips of every category.
func (p *Payload) Duration() float64 {
	var total float64
	for _, track := range p.Tracks {
		for _, clip := range track.Clips {
			if clip.Length <= 0 {
				continue
			}
			if end := clip.End(); end > total {
				total = end
			}
		}
	}
	return total
}
