package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/renderd/internal/timeline"
)

func TestChainStages_Zoom(t *testing.T) {
	tests := []struct {
		name     string
		effect   timeline.Effect
		expected string
	}{
		{
			name:     "zoom in ramps up and clamps at 1.2",
			effect:   timeline.ZoomEffect{},
			expected: "zoompan=z='min(1+0.000500*frame,1.200)':d=60:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=1920x1080:fps=30",
		},
		{
			name:     "zoom out ramps down and clamps at 0.9",
			effect:   timeline.ZoomEffect{Out: true},
			expected: "zoompan=z='max(1-0.000500*frame,0.900)':d=60:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=1920x1080:fps=30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &timeline.Clip{Length: 2, Effects: []timeline.Effect{tt.effect}}
			stages := ChainStages(clip, 1920, 1080, 30)
			require.Len(t, stages, 1)
			assert.Equal(t, tt.expected, stages[0])
		})
	}
}

func TestChainStages_ZoomMinimumOneFrame(t *testing.T) {
	clip := &timeline.Clip{Length: 0.01, Effects: []timeline.Effect{timeline.ZoomEffect{}}}
	stages := ChainStages(clip, 640, 360, 30)
	require.Len(t, stages, 1)
	assert.Contains(t, stages[0], ":d=1:")
}

func TestChainStages_Fade(t *testing.T) {
	clip := &timeline.Clip{
		Length:  5,
		Effects: []timeline.Effect{timeline.FadeEffect{In: 0.5, Out: 0.5}},
	}
	stages := ChainStages(clip, 1920, 1080, 30)
	require.Len(t, stages, 2)
	assert.Equal(t, "fade=t=in:st=0:d=0.500:alpha=1", stages[0])
	assert.Equal(t, "fade=t=out:st=4.500:d=0.500:alpha=1", stages[1])
}

func TestChainStages_FadeOutLongerThanClip(t *testing.T) {
	clip := &timeline.Clip{
		Length:  1,
		Effects: []timeline.Effect{timeline.FadeEffect{Out: 3}},
	}
	stages := ChainStages(clip, 1920, 1080, 30)
	require.Len(t, stages, 1)
	// Start time never goes negative.
	assert.Equal(t, "fade=t=out:st=0.000:d=3.000:alpha=1", stages[0])
}

func TestChainStages_FixedOrderZoomBeforeFade(t *testing.T) {
	// Declared fade-first; the chain still emits zoom first.
	clip := &timeline.Clip{
		Length: 4,
		Effects: []timeline.Effect{
			timeline.FadeEffect{In: 0.5, Out: 0.5},
			timeline.ZoomEffect{},
		},
	}
	stages := ChainStages(clip, 1280, 720, 25)
	require.Len(t, stages, 3)
	assert.Contains(t, stages[0], "zoompan=")
	assert.Contains(t, stages[1], "fade=t=in")
	assert.Contains(t, stages[2], "fade=t=out")
}

func TestChainStages_FirstDescriptorOfEachKindWins(t *testing.T) {
	clip := &timeline.Clip{
		Length: 4,
		Effects: []timeline.Effect{
			timeline.ZoomEffect{},
			timeline.ZoomEffect{Out: true},
			timeline.FadeEffect{In: 1, Out: 0},
			timeline.FadeEffect{In: 2, Out: 2},
		},
	}
	stages := ChainStages(clip, 1920, 1080, 30)
	require.Len(t, stages, 2)
	assert.Contains(t, stages[0], "min(1+") // first zoom was zoom_in
	assert.Equal(t, "fade=t=in:st=0:d=1.000:alpha=1", stages[1])
}

func TestChainStages_SlideContributesNoStage(t *testing.T) {
	clip := &timeline.Clip{
		Length:  4,
		Effects: []timeline.Effect{timeline.SlideEffect{Direction: timeline.SlideLeft, Duration: 1}},
	}
	assert.Empty(t, ChainStages(clip, 1920, 1080, 30))
}

func TestChainStages_NoEffects(t *testing.T) {
	clip := &timeline.Clip{Length: 4}
	assert.Empty(t, ChainStages(clip, 1920, 1080, 30))
}
