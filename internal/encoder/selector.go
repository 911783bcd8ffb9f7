// Package encoder decides between the hardware and software encoding
// paths. The decision is a pure function of the force flags, whether the
// payload requested the hardware codec, and the probe results, so it is
// reproducible for a fixed probe.
package encoder

import "context"

// HardwareEncoder is the hardware encoder this service targets.
const HardwareEncoder = "h264_nvenc"

// Probe reports what the external engine can do. Probe failures must
// report false rather than error; absence of hardware is never fatal.
type Probe interface {
	HasEncoder(ctx context.Context, name string) bool
	SelfTest(ctx context.Context, name string) bool
}

// Options are the pure inputs to the selection.
type Options struct {
	ForceCPU          bool // operator override: never use hardware
	ForceHardware     bool // operator override: trust hardware without self-test
	HardwareRequested bool // payload asked for the hardware codec
}

// UseHardware reports whether the hardware path is selected: not forced to
// CPU, requested, compiled into the engine, and either force-trusted or
// verified by a short synthetic self-test.
func UseHardware(ctx context.Context, opts Options, probe Probe) bool {
	if opts.ForceCPU || !opts.HardwareRequested {
		return false
	}
	if !probe.HasEncoder(ctx, HardwareEncoder) {
		return false
	}
	if opts.ForceHardware {
		return true
	}
	return probe.SelfTest(ctx, HardwareEncoder)
}
