package recording

import "fmt"

// Action is the resolved recording command action.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// Format is the resolved recording media format.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// PlatformConfig exposes read-only recording policy defaults. Injected at
// construction; never consulted as ambient global state.
type PlatformConfig interface {
	DefaultFormatExtension() string
	DefaultTimeLimit() int
	MaxTimeLimit() int
	ShouldStoreRecordings() bool
}

// RawRequest is the caller's recording command as received at the
// boundary, before normalization. TimeLimitSec is nil when absent.
type RawRequest struct {
	Action         string `json:"action"`
	Format         string `json:"format"`
	TimeLimitSec   *int   `json:"time_limit"`
	DestinationURL string `json:"store_url"`
}

// Request is a resolved, immutable recording command. Internal components
// only ever see resolved requests, never raw strings.
type Request struct {
	Action         Action
	Format         Format
	TimeLimitSec   int // <= 0 means unbounded
	DestinationURL string
}

// Resolver normalizes raw recording commands against platform defaults.
// Invalid input never raises an error; it falls back to a safe default so
// call-flow execution always moves forward.
type Resolver struct {
	cfg PlatformConfig
}

// NewResolver creates a command resolver bound to platform defaults.
func NewResolver(cfg PlatformConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve normalizes all fields of a raw request at once.
func (r *Resolver) Resolve(raw RawRequest) Request {
	return Request{
		Action:         r.ResolveAction(raw.Action),
		Format:         r.ResolveFormat(raw.Format),
		TimeLimitSec:   r.ResolveTimeLimit(raw.TimeLimitSec),
		DestinationURL: raw.DestinationURL,
	}
}

// ResolveAction maps the raw action token to a closed Action. Anything
// other than the stop token (including empty) resolves to start.
func (r *Resolver) ResolveAction(raw string) Action {
	if raw == string(ActionStop) {
		return ActionStop
	}
	return ActionStart
}

// ResolveFormat maps the raw format token to a closed Format. "mp3" and
// "wav" pass through verbatim; anything else falls back to the platform
// default, which itself falls back to mp3.
func (r *Resolver) ResolveFormat(raw string) Format {
	switch raw {
	case string(FormatMP3):
		return FormatMP3
	case string(FormatWAV):
		return FormatWAV
	}
	if r.cfg.DefaultFormatExtension() == string(FormatWAV) {
		return FormatWAV
	}
	return FormatMP3
}

// ResolveTimeLimit applies the platform cap to the requested limit.
// A non-positive configured cap means "no cap configured" and overrides
// any caller-requested limit, including an absent one: the result is the
// cap itself, treated downstream as unbounded.
func (r *Resolver) ResolveTimeLimit(raw *int) int {
	max := r.cfg.MaxTimeLimit()
	if max <= 0 {
		return max
	}
	if raw == nil {
		return r.cfg.DefaultTimeLimit()
	}
	if *raw > max {
		return max
	}
	return *raw
}

// MediaName derives the deterministic media file name for a call.
func MediaName(callID string, format Format) string {
	return fmt.Sprintf("call_recording_%s.%s", callID, format)
}

// MediaDocID derives the deterministic metadata document ID for a call.
func MediaDocID(callID string) string {
	return "call_recording_" + callID
}

// ContentType maps a format to its media content type. wav is the only
// format with a dedicated type; everything else is treated as mpeg audio.
func ContentType(format Format) string {
	if format == FormatWAV {
		return "audio/x-wav"
	}
	return "audio/mpeg"
}
