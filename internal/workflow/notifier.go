package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// resumeChannel is where the call-flow engine listens for resume signals.
const resumeChannel = "workflow:resume"

type resumePayload struct {
	CallID string `json:"call_id"`
	At     int64  `json:"at"`
}

// Notifier signals the call-flow engine that recording handling for a
// call has completed and the next workflow step may run.
type Notifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewNotifier creates a Redis-backed workflow notifier.
func NewNotifier(client *redis.Client, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, logger: logger}
}

// ResumeWorkflow publishes a resume signal for the call.
func (n *Notifier) ResumeWorkflow(ctx context.Context, callID string) error {
	body, err := json.Marshal(resumePayload{CallID: callID, At: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshal resume payload: %w", err)
	}
	if err := n.client.Publish(ctx, resumeChannel, body).Err(); err != nil {
		return fmt.Errorf("publish resume: %w", err)
	}
	n.logger.Debug("workflow resume signaled", zap.String("call_id", callID))
	return nil
}
