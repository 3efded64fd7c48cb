package transfer

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/aura-telephony/backend/pkg/queue"
)

// QueueTransfer hands media transfers to the background worker. Enqueuing
// is the whole contract here: retry and backoff for the actual PUT live
// in the worker, not in the recording controller.
type QueueTransfer struct {
	queue  *queue.Queue
	logger *zap.Logger
}

// NewQueueTransfer creates a queue-backed media transfer.
func NewQueueTransfer(q *queue.Queue, logger *zap.Logger) *QueueTransfer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueTransfer{queue: q, logger: logger}
}

// Put enqueues a transfer of the named media to the destination URL.
func (t *QueueTransfer) Put(ctx context.Context, mediaName, url, callID string) error {
	payload := queue.MediaTransferPayload{
		CallID:         callID,
		MediaName:      mediaName,
		DestinationURL: url,
		ContentType:    contentTypeForMedia(mediaName),
	}
	if err := t.queue.EnqueueMediaTransfer(ctx, payload); err != nil {
		return fmt.Errorf("enqueue media transfer: %w", err)
	}
	t.logger.Debug("media transfer enqueued",
		zap.String("call_id", callID), zap.String("media_name", mediaName), zap.String("url", url))
	return nil
}

func contentTypeForMedia(mediaName string) string {
	if path.Ext(mediaName) == ".wav" {
		return "audio/x-wav"
	}
	return "audio/mpeg"
}
