package gradesync

import (
	"fmt"

	"github.com/target/gradesync/internal/domain/model"
)

// Event drives the workflow from one phase to the next.
type Event string

const (
	EventStart           Event = "start"
	EventResumePolling   Event = "resume_polling"
	EventResumeVerifying Event = "resume_verifying"
	EventFresh           Event = "fresh"
	EventNoChanges       Event = "no_changes"
	EventChosePerRecord  Event = "chose_per_record"
	EventChoseBulk       Event = "chose_bulk"
	EventWritesDone      Event = "writes_done"
	EventSubmitted       Event = "submitted"
	EventJobCompleted    Event = "job_completed"
	EventVerified        Event = "verified"
	EventFail            Event = "fail"
	EventCancel          Event = "cancel"
)

type transitionKey struct {
	from  model.RunPhase
	event Event
}

var transitions = map[transitionKey]model.RunPhase{
	{model.PhaseIdle, EventStart}:                  model.PhaseResuming,
	{model.PhaseResuming, EventResumePolling}:      model.PhasePolling,
	{model.PhaseResuming, EventResumeVerifying}:    model.PhaseVerifying,
	{model.PhaseResuming, EventFresh}:              model.PhaseComputing,
	{model.PhaseComputing, EventNoChanges}:         model.PhaseCompleted,
	{model.PhaseComputing, EventChosePerRecord}:    model.PhaseWritingPerRecord,
	{model.PhaseComputing, EventChoseBulk}:         model.PhaseSubmittingBulk,
	{model.PhaseWritingPerRecord, EventWritesDone}: model.PhaseVerifying,
	{model.PhaseSubmittingBulk, EventSubmitted}:    model.PhasePolling,
	{model.PhasePolling, EventJobCompleted}:        model.PhaseVerifying,
	{model.PhaseVerifying, EventVerified}:          model.PhaseCompleted,
}

// TransitionError reports an event that is not legal in the current phase.
type TransitionError struct {
	From  model.RunPhase
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s on %q", e.From, e.Event)
}

// Transition returns the phase reached by applying event in phase from.
// Fail and Cancel are accepted from every non-terminal phase.
func Transition(from model.RunPhase, event Event) (model.RunPhase, error) {
	if !from.Valid() || from.Terminal() {
		return from, &TransitionError{From: from, Event: event}
	}
	switch event {
	case EventFail:
		return model.PhaseFailed, nil
	case EventCancel:
		return model.PhaseCancelled, nil
	}
	to, ok := transitions[transitionKey{from: from, event: event}]
	if !ok {
		return from, &TransitionError{From: from, Event: event}
	}
	return to, nil
}

// ResumeEvent decides how a restart re-enters the workflow from persisted state.
// A nil or non-resumable state starts fresh. A per-record run persists its
// averages before the first write, so a crash mid-write re-enters verification;
// only a crash before the averages are persisted starts fresh.
func ResumeEvent(state *model.RunState) Event {
	switch {
	case state == nil:
		return EventFresh
	case state.InProgress && state.JobID != "":
		return EventResumePolling
	case state.VerificationPending && state.ExpectedDeltas != nil && state.TargetID != "":
		return EventResumeVerifying
	default:
		return EventFresh
	}
}
