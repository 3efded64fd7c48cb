package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-telephony/backend/internal/mediastore"
	"github.com/aura-telephony/backend/internal/models"
	"github.com/aura-telephony/backend/internal/recording"
	"github.com/aura-telephony/backend/pkg/response"
	"github.com/aura-telephony/backend/pkg/storage"
)

// commandRequest is the recording command body sent by the call-flow
// engine. Action/format/time-limit are raw tokens; normalization happens
// in the recording service, never here.
type commandRequest struct {
	Action         string `json:"action"`
	Format         string `json:"format"`
	TimeLimitSec   *int   `json:"time_limit"`
	StoreURL       string `json:"store_url"`
	AccountID      string `json:"account_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	CallerIDName   string `json:"caller_id_name"`
	CallerIDNumber string `json:"caller_id_number"`
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	svc    *recording.Service
	store  *mediastore.Store
	s3     *storage.S3
	host   recording.WorkflowHost
	logger *zap.Logger
}

// NewHandler creates a recording API handler.
func NewHandler(svc *recording.Service, store *mediastore.Store, s3 *storage.S3, host recording.WorkflowHost, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, store: store, s3: s3, host: host, logger: logger}
}

// Command handles POST /calls/:call_id/recording. The request is handled
// synchronously: for a start command the response is sent only after the
// session terminates and persistence has run. Workflow resumption is
// signaled on every exit path, including errors.
func (h *Handler) Command(c *gin.Context) {
	callID := c.Param("call_id")
	var body commandRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if body.AccountID == "" {
		response.BadRequest(c, "account_id required")
		return
	}

	call := models.CallContext{
		CallID:         callID,
		AccountID:      body.AccountID,
		From:           body.From,
		To:             body.To,
		CallerIDName:   body.CallerIDName,
		CallerIDNumber: body.CallerIDNumber,
	}

	// The request context may already be done by the time the session
	// ends; resumption uses a fresh context so the signal always goes out.
	defer func() {
		if err := h.host.ResumeWorkflow(context.Background(), callID); err != nil {
			h.logger.Error("workflow resume failed", zap.Error(err), zap.String("call_id", callID))
		}
	}()

	raw := recording.RawRequest{
		Action:         body.Action,
		Format:         body.Format,
		TimeLimitSec:   body.TimeLimitSec,
		DestinationURL: body.StoreURL,
	}
	outcome := h.svc.Execute(c.Request.Context(), raw, call)
	if outcome.Kind == recording.OutcomeFailed {
		h.logger.Error("recording save failed", zap.Error(outcome.Err), zap.String("call_id", callID))
		response.Internal(c, "recording save failed")
		return
	}
	response.OK(c, outcome)
}

// Get handles GET /calls/:call_id/recording. Returns the metadata
// document and a playback URL: the stored remote URL for remote media,
// a pre-signed bucket URL otherwise.
func (h *Handler) Get(c *gin.Context) {
	callID := c.Param("call_id")
	accountID := c.Query("account_id")
	if accountID == "" {
		response.BadRequest(c, "account_id required")
		return
	}

	doc, err := h.store.GetDocument(c.Request.Context(), accountID, recording.MediaDocID(callID))
	if err != nil {
		h.logger.Error("get media document failed", zap.Error(err), zap.String("call_id", callID))
		response.Internal(c, "failed to load recording")
		return
	}
	if doc == nil {
		response.NotFound(c, "no recording for call")
		return
	}

	playbackURL := doc.RemoteMediaURL
	if playbackURL == "" {
		if h.s3 == nil {
			response.Internal(c, "platform media store not configured")
			return
		}
		expire := h.s3.PresignExpire()
		playbackURL, err = h.s3.GeneratePresignedDownloadURL(
			c.Request.Context(), storage.MediaKey(accountID, doc.Name), expire)
		if err != nil {
			h.logger.Error("presign playback URL failed", zap.Error(err), zap.String("call_id", callID))
			response.Internal(c, "failed to generate playback URL")
			return
		}
	}
	response.OK(c, gin.H{"document": doc, "playback_url": playbackURL})
}
