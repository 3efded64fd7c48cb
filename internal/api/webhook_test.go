package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-telephony/backend/internal/recording"
)

type fakePublisher struct {
	events []recording.TerminationEvent
	err    error
}

func (f *fakePublisher) PublishTermination(_ context.Context, ev recording.TerminationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func postCallEvent(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/call-events", h.CallEvent)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/call-events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCallEventPublishesTermination(t *testing.T) {
	cases := []struct {
		event  string
		reason string
	}{
		{"recording_stopped", recording.ReasonStopped},
		{"record_stop", recording.ReasonStopped},
		{"call_hangup", recording.ReasonHangup},
		{"channel_destroy", recording.ReasonHangup},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			pub := &fakePublisher{}
			h := NewWebhookHandler(pub, nil)

			w := postCallEvent(h, `{"call_id":"call-42","event":"`+tc.event+`"}`)

			assert.Equal(t, http.StatusOK, w.Code)
			require.Len(t, pub.events, 1)
			assert.Equal(t, "call-42", pub.events[0].CallID)
			assert.Equal(t, tc.reason, pub.events[0].Reason)
			assert.False(t, pub.events[0].At.IsZero())
		})
	}
}

func TestCallEventRejectsUnknownEvent(t *testing.T) {
	pub := &fakePublisher{}
	h := NewWebhookHandler(pub, nil)

	w := postCallEvent(h, `{"call_id":"call-42","event":"call_answered"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, pub.events)
}

func TestCallEventRequiresCallID(t *testing.T) {
	pub := &fakePublisher{}
	h := NewWebhookHandler(pub, nil)

	w := postCallEvent(h, `{"event":"call_hangup"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, pub.events)
}

func TestCallEventPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	h := NewWebhookHandler(pub, nil)

	w := postCallEvent(h, `{"call_id":"call-42","event":"call_hangup"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
