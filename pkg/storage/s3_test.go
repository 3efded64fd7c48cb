package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testS3() *S3 {
	return &S3{cfg: S3Config{
		Region:           "us-east-1",
		RecordingsBucket: "telephony-recordings",
	}}
}

func TestMediaKey(t *testing.T) {
	assert.Equal(t, "recordings/acct-1/call_recording_call-42.mp3",
		MediaKey("acct-1", "call_recording_call-42.mp3"))

	// Path segments in the media name never escape the account prefix.
	assert.Equal(t, "recordings/acct-1/evil.mp3",
		MediaKey("acct-1", "../../evil.mp3"))
}

func TestObjectURLRoundTrip(t *testing.T) {
	s := testS3()
	key := MediaKey("acct-1", "call_recording_call-42.mp3")
	url := s.ObjectURL(key)

	assert.Equal(t, "https://telephony-recordings.s3.us-east-1.amazonaws.com/recordings/acct-1/call_recording_call-42.mp3", url)

	got, ok := s.KeyFromObjectURL(url)
	assert.True(t, ok)
	assert.Equal(t, key, got)
}

func TestKeyFromObjectURLRejectsForeignURL(t *testing.T) {
	s := testS3()

	_, ok := s.KeyFromObjectURL("https://other-bucket.s3.us-east-1.amazonaws.com/recordings/a/b.mp3")
	assert.False(t, ok)

	_, ok = s.KeyFromObjectURL("http://archive.example.com/store/b.mp3")
	assert.False(t, ok)
}

func TestPresignExpire(t *testing.T) {
	s := testS3()
	assert.Equal(t, 15*time.Minute, s.PresignExpire())

	s.cfg.PresignExpireMinutes = 60
	assert.Equal(t, time.Hour, s.PresignExpire())
}
