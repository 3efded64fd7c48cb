package models

import "time"

// Media document visibility classes. Remote media lives at a
// caller-supplied URL; private media lives in the platform store.
const (
	VisibilityRemoteMedia  = "private_remote_media"
	VisibilityPrivateMedia = "private_media"
)

// Media provenance markers.
const (
	MediaSourceRecorded = "recorded"
	SourceTypeCallRec   = "call_recording"
)

// MediaDocument is the metadata record persisted alongside a recording.
// Its ID is a pure function of the call ID, so re-recording the same
// call overwrites the document instead of duplicating it.
type MediaDocument struct {
	ID             string    `json:"_id"`
	AccountID      string    `json:"account_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ContentType    string    `json:"content_type"`
	MediaType      string    `json:"media_type"`
	MediaSource    string    `json:"media_source"`
	SourceType     string    `json:"source_type"`
	Visibility     string    `json:"visibility"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	CallerIDName   string    `json:"caller_id_name"`
	CallerIDNumber string    `json:"caller_id_number"`
	CallID         string    `json:"call_id"`
	RemoteMediaURL string    `json:"remote_media_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
