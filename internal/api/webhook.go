package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-telephony/backend/internal/recording"
	"github.com/aura-telephony/backend/pkg/response"
)

// EventPublisher broadcasts termination events to waiting sessions.
type EventPublisher interface {
	PublishTermination(ctx context.Context, ev recording.TerminationEvent) error
}

// callEventPayload is the body the media layer posts when a recording
// stops or a call hangs up.
type callEventPayload struct {
	CallID string `json:"call_id"`
	Event  string `json:"event"`
}

// WebhookHandler receives call events from the media layer and fans them
// out so whichever instance holds the waiting session unblocks.
type WebhookHandler struct {
	bus    EventPublisher
	logger *zap.Logger
}

// NewWebhookHandler creates a call-event webhook handler.
func NewWebhookHandler(bus EventPublisher, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{bus: bus, logger: logger}
}

// CallEvent handles POST /webhooks/call-events.
func (h *WebhookHandler) CallEvent(c *gin.Context) {
	var body callEventPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if body.CallID == "" {
		response.BadRequest(c, "call_id required")
		return
	}

	var reason string
	switch body.Event {
	case recording.ReasonStopped, "record_stop":
		reason = recording.ReasonStopped
	case recording.ReasonHangup, "channel_destroy":
		reason = recording.ReasonHangup
	default:
		response.BadRequest(c, "unknown event: "+body.Event)
		return
	}

	ev := recording.TerminationEvent{CallID: body.CallID, Reason: reason, At: time.Now()}
	if err := h.bus.PublishTermination(c.Request.Context(), ev); err != nil {
		h.logger.Error("publish termination event failed",
			zap.Error(err), zap.String("call_id", body.CallID), zap.String("event", body.Event))
		response.Internal(c, "failed to publish event")
		return
	}
	h.logger.Info("call event processed",
		zap.String("call_id", body.CallID), zap.String("reason", reason))
	response.OK(c, gin.H{"call_id": body.CallID, "reason": reason})
}
