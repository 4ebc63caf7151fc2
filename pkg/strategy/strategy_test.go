package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/lurelab/decoy/pkg/session"
)

const (
	testCap = 50
	testMin = 5
)

func newScamSession(messageCount int, withIntel bool) *session.Session {
	s := session.New("test")
	s.RecordVerdict(true, "rule_fallback", 0.9, "test")
	for i := 0; i < messageCount; i++ {
		s.AppendMessage(session.Message{Sender: session.SenderScammer, Text: "m", Timestamp: time.Now()})
	}
	if withIntel {
		s.Intel.UPIIDs.Add("scam@paytm")
	}
	return s
}

func TestCapGateAlwaysWrapsUp(t *testing.T) {
	p := NewPlanner(testCap, testMin, nil)
	sess := newScamSession(testCap, true)

	// Content that would otherwise escalate must not matter at the cap.
	d := p.Decide(context.Background(), sess, "send your upi immediately")
	if d.ShouldEngage {
		t.Error("cap reached: shouldEngage must be false")
	}
	if d.Goal != GoalWrapUp {
		t.Errorf("goal = %s, want %s", d.Goal, GoalWrapUp)
	}
	if d.Reasoning != "Maximum messages per session reached" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestNonMaliciousGate(t *testing.T) {
	p := NewPlanner(testCap, testMin, nil)
	sess := session.New("benign")
	sess.AppendMessage(session.Message{Sender: session.SenderScammer, Text: "hi", Timestamp: time.Now()})

	d := p.Decide(context.Background(), sess, "hi there")
	if d.ShouldEngage {
		t.Error("non-malicious session must not be engaged")
	}
	if d.Reasoning != "No scam detected" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestGoalPrecedence(t *testing.T) {
	p := NewPlanner(testCap, testMin, nil)
	ctx := context.Background()

	testCases := []struct {
		name     string
		sess     *session.Session
		message  string
		wantGoal Goal
	}{
		{
			name:     "harvesting: upi mention clarifies",
			sess:     newScamSession(1, false),
			message:  "share your upi id",
			wantGoal: GoalClarify,
		},
		{
			name:     "harvesting: link mention clarifies",
			sess:     newScamSession(1, false),
			message:  "click this link please",
			wantGoal: GoalClarify,
		},
		{
			name:     "harvesting: urgency delays",
			sess:     newScamSession(1, false),
			message:  "do it urgent",
			wantGoal: GoalDelay,
		},
		{
			name:     "harvesting: plain message continues",
			sess:     newScamSession(1, false),
			message:  "hello sir how are you",
			wantGoal: GoalContinue,
		},
		{
			name:     "intel gathered: payment push escalates",
			sess:     newScamSession(testMin, true),
			message:  "send the money right away",
			wantGoal: GoalEscalate,
		},
		{
			name:     "intel gathered and enough turns: wrap up",
			sess:     newScamSession(testMin, true),
			message:  "are you still there friend",
			wantGoal: GoalWrapUp,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := p.Decide(ctx, tc.sess, tc.message)
			if d.Goal != tc.wantGoal {
				t.Errorf("goal = %s, want %s (reasoning: %s)", d.Goal, tc.wantGoal, d.Reasoning)
			}
		})
	}
}

func TestActiveAskVetoesEndDetection(t *testing.T) {
	// An end detector that always says yes must still be overridden by the
	// active-ask veto.
	p := NewPlanner(testCap, testMin, alwaysEnd{})
	sess := newScamSession(testMin, true)

	if p.shouldEnd(context.Background(), sess, "send your UPI now") {
		t.Error("active scam ask must never end the conversation")
	}
	if !p.shouldEnd(context.Background(), sess, "okay that is all, take care") {
		t.Error("non-ask message should defer to the end detector")
	}
}

type alwaysEnd struct{}

func (alwaysEnd) ShouldEnd(context.Context, *session.Session, string) bool { return true }

func TestStaticEndCheck(t *testing.T) {
	testCases := []struct {
		message string
		want    bool
	}{
		{"thanks, goodbye", true},
		{"okay we are done here", true},
		{"hello sir", false},
	}
	for _, tc := range testCases {
		if got := staticEndCheck(tc.message); got != tc.want {
			t.Errorf("staticEndCheck(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestWrapUpWithEndSignalDisengages(t *testing.T) {
	p := NewPlanner(testCap, testMin, nil)
	sess := newScamSession(testMin, true)

	d := p.Decide(context.Background(), sess, "okay bye, take care")
	if d.ShouldEngage {
		t.Error("goodbye at wrap-up stage should disengage")
	}
	if d.Reasoning != "Conversation end detected" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestEndCheckSkippedOnFirstExchange(t *testing.T) {
	p := NewPlanner(testCap, 1, nil)
	sess := newScamSession(1, true)

	// MessageCount of 1 reaches wrap-up with min=1 but the end sub-check
	// requires more than one exchanged message.
	d := p.Decide(context.Background(), sess, "goodbye friend take care")
	if !d.ShouldEngage {
		t.Error("end check must not run on the first exchange")
	}
	if d.Goal != GoalWrapUp {
		t.Errorf("goal = %s, want %s", d.Goal, GoalWrapUp)
	}
}
