package recording

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aura-telephony/backend/internal/models"
)

// Persister runs the storage side of a terminated session exactly once.
type Persister interface {
	Persist(ctx context.Context, sess Session, req Request, call models.CallContext) StorageOutcome
}

// StorageResolver decides which storage tier applies to a terminated
// session and executes it: caller-supplied destination URL, platform
// object store, or disabled by policy.
type StorageResolver struct {
	cfg      PlatformConfig
	store    ObjectStore
	transfer MediaTransfer
	logger   *zap.Logger
}

// NewStorageResolver creates a persistence resolver.
func NewStorageResolver(cfg PlatformConfig, store ObjectStore, transfer MediaTransfer, logger *zap.Logger) *StorageResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageResolver{cfg: cfg, store: store, transfer: transfer, logger: logger}
}

// Persist evaluates the storage tiers in order. The metadata write must
// succeed before any transfer is attempted; a transfer is never started
// for media with no recorded metadata.
func (r *StorageResolver) Persist(ctx context.Context, sess Session, req Request, call models.CallContext) StorageOutcome {
	switch {
	case req.DestinationURL != "":
		return r.persistRemote(ctx, sess, req, call)
	case r.cfg.ShouldStoreRecordings():
		return r.persistPlatform(ctx, sess, req, call)
	default:
		r.logger.Warn("recording discarded: no destination and platform storage disabled by policy",
			zap.String("call_id", call.CallID), zap.String("media_name", sess.MediaName))
		return StorageOutcome{Kind: OutcomeDisabled, Reason: "store_recordings policy disabled"}
	}
}

func (r *StorageResolver) persistRemote(ctx context.Context, sess Session, req Request, call models.CallContext) StorageOutcome {
	url := JoinURL(req.DestinationURL, sess.MediaName)
	doc := buildDocument(sess, call, models.VisibilityRemoteMedia)
	doc.RemoteMediaURL = url

	saved, err := r.store.SaveDocument(ctx, call.AccountID, doc)
	if err != nil {
		r.logger.Error("metadata write failed, abandoning save",
			zap.Error(err), zap.String("call_id", call.CallID), zap.String("doc_id", doc.ID))
		return StorageOutcome{Kind: OutcomeFailed, Err: fmt.Errorf("save metadata document %s: %w", doc.ID, err)}
	}

	if err := r.transfer.Put(ctx, sess.MediaName, url, call.CallID); err != nil {
		r.logger.Error("media transfer to destination URL failed",
			zap.Error(err), zap.String("call_id", call.CallID), zap.String("url", url))
	}
	r.logger.Info("recording stored at remote destination",
		zap.String("call_id", call.CallID), zap.String("doc_id", saved.ID), zap.String("url", url))
	return StorageOutcome{Kind: OutcomeStoredRemote, URL: url}
}

func (r *StorageResolver) persistPlatform(ctx context.Context, sess Session, req Request, call models.CallContext) StorageOutcome {
	doc := buildDocument(sess, call, models.VisibilityPrivateMedia)

	saved, err := r.store.SaveDocument(ctx, call.AccountID, doc)
	if err != nil {
		r.logger.Error("metadata write failed, abandoning save",
			zap.Error(err), zap.String("call_id", call.CallID), zap.String("doc_id", doc.ID))
		return StorageOutcome{Kind: OutcomeFailed, Err: fmt.Errorf("save metadata document %s: %w", doc.ID, err)}
	}

	url, err := r.store.CanonicalURL(ctx, call.AccountID, saved.ID, sess.MediaName)
	if err != nil {
		r.logger.Error("canonical storage URL resolution failed",
			zap.Error(err), zap.String("call_id", call.CallID), zap.String("doc_id", saved.ID))
		return StorageOutcome{Kind: OutcomeFailed, Err: fmt.Errorf("resolve canonical url for %s: %w", saved.ID, err)}
	}

	if err := r.transfer.Put(ctx, sess.MediaName, url, call.CallID); err != nil {
		r.logger.Error("media transfer to platform store failed",
			zap.Error(err), zap.String("call_id", call.CallID), zap.String("url", url))
	}
	r.logger.Info("recording stored in platform store",
		zap.String("call_id", call.CallID), zap.String("media_id", saved.ID))
	return StorageOutcome{Kind: OutcomeStoredPlatform, MediaID: saved.ID}
}

func buildDocument(sess Session, call models.CallContext, visibility string) models.MediaDocument {
	now := time.Now().UTC()
	return models.MediaDocument{
		ID:             MediaDocID(call.CallID),
		AccountID:      call.AccountID,
		Name:           sess.MediaName,
		Description:    "recording " + sess.MediaName,
		ContentType:    ContentType(sess.Format),
		MediaType:      string(sess.Format),
		MediaSource:    models.MediaSourceRecorded,
		SourceType:     models.SourceTypeCallRec,
		Visibility:     visibility,
		From:           call.From,
		To:             call.To,
		CallerIDName:   call.CallerIDName,
		CallerIDNumber: call.CallerIDNumber,
		CallID:         call.CallID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// JoinURL appends a path segment to a base URL without doubling slashes.
func JoinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}
