package callcontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-telephony/backend/internal/recording"
)

const (
	// commandChannel is where the media layer listens for record commands.
	commandChannel = "callctl:commands"
	// eventChannelPrefix scopes termination events per call.
	eventChannelPrefix = "callctl:events:"
	publishTimeout     = 5 * time.Second
)

// Bus is the call-control transport over Redis pub/sub: record commands
// go out on a shared command channel, termination events come back on a
// per-call channel. Events may be published by any instance (webhook
// receivers included), so sessions waiting on one instance still see
// terminations reported to another.
type Bus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewBus creates the Redis call-control bus.
func NewBus(client *redis.Client, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{client: client, logger: logger}
}

// IssueRecordCommand publishes a record command to the media layer.
func (b *Bus) IssueRecordCommand(ctx context.Context, cmd recording.RecordCommand) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal record command: %w", err)
	}
	if err := b.client.Publish(ctx, commandChannel, body).Err(); err != nil {
		return fmt.Errorf("publish record command: %w", err)
	}
	b.logger.Debug("record command published",
		zap.String("call_id", cmd.CallID), zap.String("action", string(cmd.Action)),
		zap.String("media_name", cmd.MediaName))
	return nil
}

// Subscribe registers for termination events on a call. A subscription
// failure is logged and yields a channel that never fires; the session
// still runs against its timeout rather than aborting the workflow.
func (b *Bus) Subscribe(callID string) (<-chan recording.TerminationEvent, func()) {
	out := make(chan recording.TerminationEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())

	pubsub := b.client.Subscribe(ctx, eventChannelPrefix+callID)
	if _, err := pubsub.Receive(ctx); err != nil {
		b.logger.Error("termination event subscribe failed", zap.Error(err), zap.String("call_id", callID))
		_ = pubsub.Close()
		return out, cancel
	}

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev recording.TerminationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("invalid termination event payload",
						zap.String("raw", msg.Payload), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, cancel
}

// PublishTermination broadcasts a termination event for a call. Used by
// the call-event webhook when the media layer reports a stop or hangup.
func (b *Bus) PublishTermination(ctx context.Context, ev recording.TerminationEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal termination event: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.client.Publish(pctx, eventChannelPrefix+ev.CallID, body).Err(); err != nil {
		return fmt.Errorf("publish termination event: %w", err)
	}
	b.logger.Debug("termination event published",
		zap.String("call_id", ev.CallID), zap.String("reason", ev.Reason))
	return nil
}
