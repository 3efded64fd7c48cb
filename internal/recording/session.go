package recording

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aura-telephony/backend/internal/models"
)

// GracePeriod is added to the resolved time limit before the termination
// wait is treated as timed out.
const GracePeriod = 10 * time.Second

// Service drives recording sessions: it resolves incoming commands,
// instructs the media layer, waits out the termination race and hands the
// terminated session to the persister exactly once. Sessions for
// different calls are independent; the only shared state is the waiter
// registry used to cancel a session's wait from an explicit stop.
type Service struct {
	resolver  *Resolver
	callctl   CallControl
	persister Persister
	logger    *zap.Logger
	grace     time.Duration

	mu      sync.Mutex
	waiters map[string]chan TerminationEvent
}

// NewService creates the recording session service.
func NewService(cfg PlatformConfig, callctl CallControl, persister Persister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:  NewResolver(cfg),
		callctl:   callctl,
		persister: persister,
		logger:    logger,
		grace:     GracePeriod,
		waiters:   make(map[string]chan TerminationEvent),
	}
}

// Execute handles one recording command end to end. It returns only after
// termination handling is complete (for start commands this includes the
// termination wait), so the caller can signal workflow resumption once
// this returns. The outcome is telemetry only.
func (s *Service) Execute(ctx context.Context, raw RawRequest, call models.CallContext) StorageOutcome {
	req := s.resolver.Resolve(raw)
	if req.Action == ActionStop {
		return s.stop(ctx, req, call)
	}
	return s.start(ctx, req, call)
}

func (s *Service) start(ctx context.Context, req Request, call models.CallContext) StorageOutcome {
	sess := Session{
		CallID:       call.CallID,
		MediaName:    MediaName(call.CallID, req.Format),
		Format:       req.Format,
		TimeLimitSec: req.TimeLimitSec,
		StartedAt:    time.Now(),
	}

	// Listener registration must precede the start command: a stop event
	// racing in immediately after start must not be missed.
	events, cancel := s.callctl.Subscribe(call.CallID)
	defer cancel()
	local := s.register(call.CallID)
	defer s.deregister(call.CallID, local)

	cmd := RecordCommand{CallID: call.CallID, MediaName: sess.MediaName, Action: ActionStart, TimeLimitSec: req.TimeLimitSec}
	if err := s.callctl.IssueRecordCommand(ctx, cmd); err != nil {
		// Control faults forfeit the segment, never the workflow; the
		// session still runs its wait and attempts persistence.
		s.logger.Error("record start command failed",
			zap.Error(err), zap.String("call_id", call.CallID), zap.String("media_name", sess.MediaName))
	}

	reason := s.await(ctx, events, local, req.TimeLimitSec)
	s.logger.Info("recording session terminating",
		zap.String("call_id", call.CallID), zap.String("reason", reason),
		zap.Duration("elapsed", time.Since(sess.StartedAt)))

	return s.persister.Persist(ctx, sess, req, call)
}

// stop handles an explicit stop command. With no session registered for
// the call it still issues a stop instruction and persists: the media
// layer may hold an active recording this controller lost track of, and
// losing an artifact is worse than a redundant stop.
func (s *Service) stop(ctx context.Context, req Request, call models.CallContext) StorageOutcome {
	sess := Session{
		CallID:       call.CallID,
		MediaName:    MediaName(call.CallID, req.Format),
		Format:       req.Format,
		TimeLimitSec: req.TimeLimitSec,
		StartedAt:    time.Now(),
	}

	cmd := RecordCommand{CallID: call.CallID, MediaName: sess.MediaName, Action: ActionStop}
	if err := s.callctl.IssueRecordCommand(ctx, cmd); err != nil {
		s.logger.Error("record stop command failed",
			zap.Error(err), zap.String("call_id", call.CallID), zap.String("media_name", sess.MediaName))
	}

	if s.notify(call.CallID, TerminationEvent{CallID: call.CallID, Reason: ReasonStopped, At: time.Now()}) {
		// The call's active session unblocks and owns persistence. It
		// persists with its own start-time request; any destination hint
		// on this stop command is deliberately ignored.
		return StorageOutcome{Kind: OutcomeDelegated, Reason: "active session owns persistence"}
	}
	return s.persister.Persist(ctx, sess, req, call)
}

// await blocks until the first of: a termination event from the media
// layer, a locally delivered event (explicit stop or supersede), the
// time-limit-plus-grace timeout, or context cancellation. A non-positive
// limit waits without a deadline.
func (s *Service) await(ctx context.Context, events, local <-chan TerminationEvent, limitSec int) string {
	var timeout <-chan time.Time
	if limitSec > 0 {
		t := time.NewTimer(time.Duration(limitSec)*time.Second + s.grace)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case ev := <-events:
		return ev.Reason
	case ev := <-local:
		return ev.Reason
	case <-timeout:
		// Abnormal but handled: the media layer never reported back.
		return ReasonTimeout
	case <-ctx.Done():
		return ReasonCanceled
	}
}

func (s *Service) register(callID string) chan TerminationEvent {
	ch := make(chan TerminationEvent, 1)
	s.mu.Lock()
	if old, ok := s.waiters[callID]; ok {
		// A new start for the same call supersedes the prior session's
		// pending termination handling: new registration wins, the old
		// waiter completes its own persistence path independently.
		select {
		case old <- TerminationEvent{CallID: callID, Reason: ReasonSuperseded, At: time.Now()}:
		default:
		}
	}
	s.waiters[callID] = ch
	s.mu.Unlock()
	return ch
}

func (s *Service) deregister(callID string, ch chan TerminationEvent) {
	s.mu.Lock()
	if cur, ok := s.waiters[callID]; ok && cur == ch {
		delete(s.waiters, callID)
	}
	s.mu.Unlock()
}

// notify delivers an event to the call's registered waiter. Reports false
// when no session is registered for the call.
func (s *Service) notify(callID string, ev TerminationEvent) bool {
	s.mu.Lock()
	ch, ok := s.waiters[callID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- ev:
	default:
		// Waiter already has a pending event; it terminates either way.
	}
	return true
}

// HasActiveSession reports whether a recording session is currently
// waiting on termination for the call.
func (s *Service) HasActiveSession(callID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.waiters[callID]
	return ok
}
