package models

import (
	"encoding/json"
	"time"
)

// RenderRequest is the body accepted by POST /render. Exactly one of
// Payload or PayloadURL must be provided.
type RenderRequest struct {
	Payload        json.RawMessage `json:"payload,omitempty"`
	PayloadURL     string          `json:"payload_url,omitempty"`
	OutputFilename string          `json:"output_filename,omitempty"`
}

// RenderJob is the message published to the render queue for one request.
type RenderJob struct {
	ID             string          `json:"id"`
	Payload        json.RawMessage `json:"payload"`
	OutputFilename string          `json:"output_filename"`
	EnqueuedAt     time.Time       `json:"enqueued_at"`
}

// JobStatus tracks the lifecycle of a render job.
type JobStatus struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	OutputURL string    `json:"output_url,omitempty"`
	Logs      string    `json:"logs,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Job status constants
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// OutputSpec describes the requested output canvas and encoding. Zero values
// are replaced by defaults when the payload omits them.
type OutputSpec struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	FPS     int    `json:"fps"`
	Codec   string `json:"codec"`
	Bitrate string `json:"bitrate,omitempty"`
}

// Output canvas defaults, matching the service's historical behavior.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
	DefaultFPS    = 30
	DefaultCodec  = "h264_nvenc"
)

// ApplyDefaults fills zero-valued fields with the service defaults.
func (o *OutputSpec) ApplyDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Codec == "" {
		o.Codec = DefaultCodec
	}
}
