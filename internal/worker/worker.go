package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/aura-telephony/backend/internal/recording"
	"github.com/aura-telephony/backend/pkg/queue"
	"github.com/aura-telephony/backend/pkg/storage"
)

// DocumentToucher marks a media document as updated once its media has
// actually landed at the destination.
type DocumentToucher interface {
	Touch(ctx context.Context, docID string) error
}

const downloadTimeout = 5 * time.Minute

// TransferProcessor executes media transfer jobs: stream the captured
// media from the media origin, then deliver it to the destination. A
// canonical bucket URL goes to the platform bucket; anything else is an
// HTTP PUT to the caller-supplied URL.
type TransferProcessor struct {
	mediaOriginURL string
	s3             *storage.S3
	queue          *queue.Queue
	docs           DocumentToucher
	http           *resty.Client
	logger         *zap.Logger
}

// NewTransferProcessor creates a media transfer processor. docs may be
// nil when the worker runs without database access.
func NewTransferProcessor(mediaOriginURL string, s3 *storage.S3, q *queue.Queue, docs DocumentToucher, logger *zap.Logger) *TransferProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(downloadTimeout).
		SetRetryCount(0) // retries belong to the queue, not the HTTP layer
	return &TransferProcessor{
		mediaOriginURL: mediaOriginURL,
		s3:             s3,
		queue:          q,
		docs:           docs,
		http:           client,
		logger:         logger,
	}
}

// Process executes one media transfer job.
func (p *TransferProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeMediaTransfer {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.MediaTransferPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	originURL := p.mediaOriginURL + "/" + payload.MediaName
	resp, err := p.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(originURL)
	if err != nil {
		return fmt.Errorf("download media: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("download media status: %d", resp.StatusCode())
	}

	contentType := payload.ContentType
	if contentType == "" {
		contentType = resp.Header().Get("Content-Type")
	}

	// Canonical bucket URLs go through the S3 client; everything else is
	// a plain HTTP PUT to the caller-supplied destination.
	if p.s3 != nil {
		if key, ok := p.s3.KeyFromObjectURL(payload.DestinationURL); ok {
			if _, err := p.s3.Upload(ctx, key, contentType, body, resp.RawResponse.ContentLength); err != nil {
				return fmt.Errorf("s3 upload: %w", err)
			}
			p.logger.Info("media transferred to platform store",
				zap.String("job_id", job.ID), zap.String("call_id", payload.CallID), zap.String("key", key))
			p.touchDocument(ctx, payload.CallID)
			return nil
		}
	}

	putResp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Put(payload.DestinationURL)
	if err != nil {
		return fmt.Errorf("put media: %w", err)
	}
	if putResp.StatusCode() < 200 || putResp.StatusCode() >= 300 {
		return fmt.Errorf("put media status: %d", putResp.StatusCode())
	}

	p.logger.Info("media transferred to destination URL",
		zap.String("job_id", job.ID), zap.String("call_id", payload.CallID),
		zap.String("url", payload.DestinationURL))
	p.touchDocument(ctx, payload.CallID)
	return nil
}

// touchDocument records that the call's media has landed. Best effort:
// the transfer already succeeded, a missed touch does not fail the job.
func (p *TransferProcessor) touchDocument(ctx context.Context, callID string) {
	if p.docs == nil {
		return
	}
	if err := p.docs.Touch(ctx, recording.MediaDocID(callID)); err != nil {
		p.logger.Warn("document touch failed", zap.Error(err), zap.String("call_id", callID))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *TransferProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("transfer worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
