package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mediaforge/renderd/pkg/models"
)

// Fallback pipeline constants: ten seconds of black at the requested
// canvas, software-encoded.
const fallbackSeconds = 10

// assemble serializes the run into the final argument list. Order is
// fixed: global flags, inputs, filter graph, mappings, codec parameters,
// frame rate, pixel format, audio codec, shortest directive, output path.
func (r *run) assemble(videoLabel, audioLabel string, useHardware bool, outPath string) []string {
	args := []string{r.c.ffmpeg, "-y", "-hide_banner"}
	args = append(args, r.inputs.args...)

	if len(r.filters) > 0 {
		args = append(args, "-filter_complex", strings.Join(r.filters, ";"))
	}
	if videoLabel != "" {
		args = append(args, "-map", "["+videoLabel+"]")
	}
	if audioLabel != "" {
		args = append(args, "-map", "["+audioLabel+"]")
	}

	args = append(args, r.videoCodecArgs(useHardware)...)
	args = append(args, "-r", strconv.Itoa(r.out.FPS), "-pix_fmt", "yuv420p")
	if audioLabel != "" {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}

	return append(args, "-shortest", outPath)
}

// videoCodecArgs returns the encoder parameters for the selected path.
// The hardware and software paths use distinct quality knobs.
func (r *run) videoCodecArgs(useHardware bool) []string {
	if useHardware {
		bitrate := r.out.Bitrate
		if bitrate == "" {
			bitrate = "6M"
		}
		return []string{
			"-c:v", "h264_nvenc",
			"-preset", "p5",
			"-rc", "vbr",
			"-cq", "23",
			"-b:v", bitrate,
			"-maxrate", "8M",
			"-bufsize", "12M",
		}
	}
	return []string{
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
	}
}

// fallbackPlan is the degraded pipeline for unrecognized payloads and
// empty timelines: a fixed-length black canvas with no file inputs.
func (c *Compiler) fallbackPlan(out models.OutputSpec, outPath string) *Plan {
	args := []string{
		c.ffmpeg, "-y", "-hide_banner",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%d", out.Width, out.Height, fallbackSeconds),
		"-r", strconv.Itoa(out.FPS),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		outPath,
	}
	return &Plan{
		Args:     args,
		Fallback: true,
		Duration: fallbackSeconds,
	}
}
