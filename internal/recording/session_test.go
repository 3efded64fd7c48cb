package recording

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-telephony/backend/internal/models"
)

type fakeCallControl struct {
	mu     sync.Mutex
	ops    []string
	cmds   []RecordCommand
	events chan TerminationEvent
	cmdErr error
}

func newFakeCallControl() *fakeCallControl {
	return &fakeCallControl{events: make(chan TerminationEvent)}
}

func (f *fakeCallControl) IssueRecordCommand(_ context.Context, cmd RecordCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "command:"+string(cmd.Action))
	f.cmds = append(f.cmds, cmd)
	return f.cmdErr
}

func (f *fakeCallControl) Subscribe(string) (<-chan TerminationEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "subscribe")
	return f.events, func() {}
}

func (f *fakeCallControl) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeCallControl) commands() []RecordCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordCommand(nil), f.cmds...)
}

type countingPersister struct {
	mu       sync.Mutex
	sessions []Session
	requests []Request
	out      StorageOutcome
}

func (p *countingPersister) Persist(_ context.Context, sess Session, req Request, _ models.CallContext) StorageOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, sess)
	p.requests = append(p.requests, req)
	return p.out
}

func (p *countingPersister) persisted() []Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Session(nil), p.sessions...)
}

func (p *countingPersister) persistedRequests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

func waitForActiveSession(t *testing.T, svc *Service, callID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !svc.HasActiveSession(callID) {
		if time.Now().After(deadline) {
			t.Fatal("session never became active")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartSubscribesBeforeCommand(t *testing.T) {
	ctl := newFakeCallControl()
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeStoredPlatform}}
	// No cap configured: the session waits unbounded for its event.
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 0}, ctl, p, nil)

	done := make(chan StorageOutcome, 1)
	go func() {
		done <- svc.Execute(context.Background(), RawRequest{Action: "start", Format: "wav"}, testCall())
	}()

	waitForActiveSession(t, svc, "call-42")
	ctl.events <- TerminationEvent{CallID: "call-42", Reason: ReasonHangup, At: time.Now()}

	out := <-done
	assert.Equal(t, OutcomeStoredPlatform, out.Kind)

	// A stop event racing in right after start must find the listener
	// already in place.
	assert.Equal(t, []string{"subscribe", "command:start"}, ctl.opLog())

	cmds := ctl.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, ActionStart, cmds[0].Action)
	assert.Equal(t, "call_recording_call-42.wav", cmds[0].MediaName)

	sessions := p.persisted()
	require.Len(t, sessions, 1)
	assert.Equal(t, "call_recording_call-42.wav", sessions[0].MediaName)
	assert.False(t, svc.HasActiveSession("call-42"))
}

func TestStartCommandFaultIsNonFatal(t *testing.T) {
	ctl := newFakeCallControl()
	ctl.cmdErr = errors.New("media layer unreachable")
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeDisabled}}
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 0}, ctl, p, nil)

	done := make(chan StorageOutcome, 1)
	go func() {
		done <- svc.Execute(context.Background(), RawRequest{}, testCall())
	}()

	waitForActiveSession(t, svc, "call-42")
	ctl.events <- TerminationEvent{CallID: "call-42", Reason: ReasonHangup, At: time.Now()}

	<-done
	// The segment is forfeit but the session still ran its wait and
	// reached the persister.
	assert.Len(t, p.persisted(), 1)
}

func TestExplicitStopDelegatesToActiveSession(t *testing.T) {
	ctl := newFakeCallControl()
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeStoredPlatform}}
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 0}, ctl, p, nil)

	startDone := make(chan StorageOutcome, 1)
	go func() {
		startDone <- svc.Execute(context.Background(), RawRequest{Action: "start"}, testCall())
	}()
	waitForActiveSession(t, svc, "call-42")

	stopOut := svc.Execute(context.Background(), RawRequest{Action: "stop"}, testCall())
	assert.Equal(t, OutcomeDelegated, stopOut.Kind)

	startOut := <-startDone
	assert.Equal(t, OutcomeStoredPlatform, startOut.Kind)

	// Exactly one persistence attempt for the recording, owned by the
	// session the stop unblocked.
	assert.Len(t, p.persisted(), 1)

	cmds := ctl.commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, ActionStart, cmds[0].Action)
	assert.Equal(t, ActionStop, cmds[1].Action)
}

func TestDelegatedStopKeepsStartDestination(t *testing.T) {
	ctl := newFakeCallControl()
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeStoredRemote}}
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 0}, ctl, p, nil)

	startDone := make(chan StorageOutcome, 1)
	go func() {
		startDone <- svc.Execute(context.Background(),
			RawRequest{Action: "start", DestinationURL: "http://archive.example.com/store"}, testCall())
	}()
	waitForActiveSession(t, svc, "call-42")

	stopOut := svc.Execute(context.Background(),
		RawRequest{Action: "stop", DestinationURL: "http://other.example.com/elsewhere"}, testCall())
	assert.Equal(t, OutcomeDelegated, stopOut.Kind)
	<-startDone

	// The unblocked session persists with its own start-time destination
	// hint; the stop command's hint is ignored.
	reqs := p.persistedRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "http://archive.example.com/store", reqs[0].DestinationURL)
}

func TestStopWithoutSessionStillStopsAndPersists(t *testing.T) {
	ctl := newFakeCallControl()
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeStoredPlatform}}
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 3600}, ctl, p, nil)

	out := svc.Execute(context.Background(), RawRequest{Action: "stop"}, testCall())

	assert.Equal(t, OutcomeStoredPlatform, out.Kind)
	assert.Len(t, p.persisted(), 1)

	cmds := ctl.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, ActionStop, cmds[0].Action)
	assert.Equal(t, "call_recording_call-42.mp3", cmds[0].MediaName)
}

func TestTimeLimitTimeoutPersistsOnce(t *testing.T) {
	ctl := newFakeCallControl()
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeStoredPlatform}}
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 3600}, ctl, p, nil)
	svc.grace = 50 * time.Millisecond

	limit := 1
	out := svc.Execute(context.Background(), RawRequest{Action: "start", TimeLimitSec: &limit}, testCall())

	assert.Equal(t, OutcomeStoredPlatform, out.Kind)
	assert.Len(t, p.persisted(), 1)
	assert.False(t, svc.HasActiveSession("call-42"))
}

func TestNewStartSupersedesPriorSession(t *testing.T) {
	ctl := newFakeCallControl()
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeStoredPlatform}}
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 0}, ctl, p, nil)

	firstDone := make(chan StorageOutcome, 1)
	go func() {
		firstDone <- svc.Execute(context.Background(), RawRequest{Action: "start"}, testCall())
	}()
	waitForActiveSession(t, svc, "call-42")

	secondDone := make(chan StorageOutcome, 1)
	go func() {
		secondDone <- svc.Execute(context.Background(), RawRequest{Action: "start", Format: "wav"}, testCall())
	}()

	// The prior session is released immediately and runs its own
	// persistence path.
	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded session never terminated")
	}

	ctl.events <- TerminationEvent{CallID: "call-42", Reason: ReasonStopped, At: time.Now()}
	<-secondDone

	assert.Len(t, p.persisted(), 2)
	assert.False(t, svc.HasActiveSession("call-42"))
}

func TestContextCancelUnblocksWait(t *testing.T) {
	ctl := newFakeCallControl()
	p := &countingPersister{out: StorageOutcome{Kind: OutcomeDisabled}}
	svc := NewService(stubConfig{ext: "mp3", defLimit: 600, maxLimit: 0}, ctl, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan StorageOutcome, 1)
	go func() {
		done <- svc.Execute(ctx, RawRequest{Action: "start"}, testCall())
	}()
	waitForActiveSession(t, svc, "call-42")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("canceled session never terminated")
	}
	assert.Len(t, p.persisted(), 1)
}
