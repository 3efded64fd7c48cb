package recording

import (
	"context"
	"time"

	"github.com/aura-telephony/backend/internal/models"
)

// Termination reasons reported by the media layer or synthesized locally.
const (
	ReasonStopped    = "recording_stopped"
	ReasonHangup     = "call_hangup"
	ReasonTimeout    = "wait_timeout"
	ReasonSuperseded = "superseded"
	ReasonCanceled   = "canceled"
)

// TerminationEvent signals that a recording on a call has ended.
type TerminationEvent struct {
	CallID string    `json:"call_id"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// RecordCommand instructs the media layer to begin or end capture.
type RecordCommand struct {
	CallID       string `json:"call_id"`
	MediaName    string `json:"media_name"`
	Action       Action `json:"action"`
	TimeLimitSec int    `json:"time_limit"`
}

// CallControl is the transport to the media layer: it delivers record
// commands and surfaces termination events per call. Subscribe must be
// called before the start command is issued so an immediately racing
// event is not missed; the returned cancel releases the subscription.
type CallControl interface {
	IssueRecordCommand(ctx context.Context, cmd RecordCommand) error
	Subscribe(callID string) (events <-chan TerminationEvent, cancel func())
}

// ObjectStore persists metadata documents and resolves the platform's
// canonical storage URL for a document's media.
type ObjectStore interface {
	SaveDocument(ctx context.Context, accountID string, doc models.MediaDocument) (models.MediaDocument, error)
	CanonicalURL(ctx context.Context, accountID, docID, mediaName string) (string, error)
}

// MediaTransfer moves captured media to its destination URL. Retry and
// backoff policy belongs to the implementation, not the caller.
type MediaTransfer interface {
	Put(ctx context.Context, mediaName, url, callID string) error
}

// WorkflowHost resumes the owning call workflow once recording handling
// for a command has completed. Signaled exactly once per invocation, on
// every path, success or failure.
type WorkflowHost interface {
	ResumeWorkflow(ctx context.Context, callID string) error
}

// OutcomeKind tags a StorageOutcome.
type OutcomeKind string

const (
	// OutcomeStoredRemote: media sent to a caller-supplied URL.
	OutcomeStoredRemote OutcomeKind = "stored_remote"
	// OutcomeStoredPlatform: media stored in the platform object store.
	OutcomeStoredPlatform OutcomeKind = "stored_platform"
	// OutcomeDisabled: no destination given and policy disallows storage.
	OutcomeDisabled OutcomeKind = "disabled"
	// OutcomeDelegated: a stop command was handed to the call's active
	// session, which owns the persistence attempt.
	OutcomeDelegated OutcomeKind = "delegated"
	// OutcomeFailed: the metadata write failed; the save was abandoned.
	OutcomeFailed OutcomeKind = "failed"
)

// StorageOutcome is the tagged result of termination handling. Consumed
// for telemetry only; it carries no further lifecycle.
type StorageOutcome struct {
	Kind    OutcomeKind `json:"kind"`
	URL     string      `json:"url,omitempty"`      // stored_remote
	MediaID string      `json:"media_id,omitempty"` // stored_platform
	Reason  string      `json:"reason,omitempty"`   // disabled / delegated
	Err     error       `json:"-"`
}

// Session identifies one in-flight recording, owned exclusively by the
// controller invocation running it.
type Session struct {
	CallID       string
	MediaName    string
	Format       Format
	TimeLimitSec int
	StartedAt    time.Time
}
