package recording

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubConfig struct {
	ext      string
	defLimit int
	maxLimit int
	store    bool
}

func (c stubConfig) DefaultFormatExtension() string { return c.ext }
func (c stubConfig) DefaultTimeLimit() int          { return c.defLimit }
func (c stubConfig) MaxTimeLimit() int              { return c.maxLimit }
func (c stubConfig) ShouldStoreRecordings() bool    { return c.store }

func TestResolveAction(t *testing.T) {
	r := NewResolver(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 3600})

	assert.Equal(t, ActionStop, r.ResolveAction("stop"))
	assert.Equal(t, ActionStart, r.ResolveAction("start"))
	assert.Equal(t, ActionStart, r.ResolveAction(""))
	assert.Equal(t, ActionStart, r.ResolveAction("pause"))
	assert.Equal(t, ActionStart, r.ResolveAction("STOP"))
}

func TestResolveFormat(t *testing.T) {
	r := NewResolver(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 3600})

	assert.Equal(t, FormatMP3, r.ResolveFormat("mp3"))
	assert.Equal(t, FormatWAV, r.ResolveFormat("wav"))
	assert.Equal(t, FormatMP3, r.ResolveFormat(""))
	assert.Equal(t, FormatMP3, r.ResolveFormat("ogg"))

	wavDefault := NewResolver(stubConfig{ext: "wav", defLimit: 600, maxLimit: 3600})
	assert.Equal(t, FormatWAV, wavDefault.ResolveFormat(""))
	assert.Equal(t, FormatWAV, wavDefault.ResolveFormat("flac"))
	assert.Equal(t, FormatMP3, wavDefault.ResolveFormat("mp3"))

	// A misconfigured default that is neither mp3 nor wav still lands on mp3.
	broken := NewResolver(stubConfig{ext: "ogg", defLimit: 600, maxLimit: 3600})
	assert.Equal(t, FormatMP3, broken.ResolveFormat(""))
}

func TestResolveTimeLimit(t *testing.T) {
	r := NewResolver(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 3600})

	assert.Equal(t, 600, r.ResolveTimeLimit(nil))

	limit := 120
	assert.Equal(t, 120, r.ResolveTimeLimit(&limit))

	over := 9999
	assert.Equal(t, 3600, r.ResolveTimeLimit(&over))

	exact := 3600
	assert.Equal(t, 3600, r.ResolveTimeLimit(&exact))
}

func TestResolveTimeLimitNoCap(t *testing.T) {
	// With no cap configured the result is the cap itself, which the
	// session treats as an unbounded wait, regardless of caller input.
	for _, max := range []int{0, -1} {
		r := NewResolver(stubConfig{ext: "mp3", defLimit: 600, maxLimit: max})

		assert.Equal(t, max, r.ResolveTimeLimit(nil))
		limit := 120
		assert.Equal(t, max, r.ResolveTimeLimit(&limit))
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 3600})

	req := r.Resolve(RawRequest{Action: "bogus", Format: "wav", DestinationURL: "http://archive.example.com/store"})
	assert.Equal(t, ActionStart, req.Action)
	assert.Equal(t, FormatWAV, req.Format)
	assert.Equal(t, 600, req.TimeLimitSec)
	assert.Equal(t, "http://archive.example.com/store", req.DestinationURL)
}

func TestMediaNaming(t *testing.T) {
	assert.Equal(t, "call_recording_abc-123.mp3", MediaName("abc-123", FormatMP3))
	assert.Equal(t, "call_recording_abc-123.wav", MediaName("abc-123", FormatWAV))
	assert.Equal(t, "call_recording_abc-123", MediaDocID("abc-123"))

	// Same inputs always derive the same names.
	assert.Equal(t, MediaName("abc-123", FormatWAV), MediaName("abc-123", FormatWAV))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/x-wav", ContentType(FormatWAV))
	assert.Equal(t, "audio/mpeg", ContentType(FormatMP3))
}
