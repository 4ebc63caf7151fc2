package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lurelab/decoy/pkg/detect"
	"github.com/lurelab/decoy/pkg/engage"
	"github.com/lurelab/decoy/pkg/intel"
	"github.com/lurelab/decoy/pkg/report"
	"github.com/lurelab/decoy/pkg/session"
	"github.com/lurelab/decoy/pkg/strategy"
)

// newTestOrchestrator wires a rule-only pipeline against the given
// collector URL with a low reporting minimum.
func newTestOrchestrator(t *testing.T, collectorURL string, minForReport int) (*Orchestrator, session.Store) {
	t.Helper()

	store := session.NewInMemoryStore()
	t.Cleanup(store.Close)

	rules := detect.NewRuleClassifier(0.7)
	engine := detect.NewEngine(nil, rules)
	planner := strategy.NewPlanner(50, minForReport, nil)
	dispatcher := report.NewDispatcher(collectorURL, minForReport, time.Second)

	o := New(store, engine, intel.NewExtractor(), planner, engage.CannedReplier{}, dispatcher, nil)
	return o, store
}

const scamText = "Your bank account will be blocked today. Verify immediately."

func TestHandleMessageValidation(t *testing.T) {
	o, store := newTestOrchestrator(t, "", 5)
	ctx := context.Background()

	testCases := []struct {
		name string
		req  *Request
	}{
		{"missing session id", &Request{Message: session.Message{Text: "hi"}}},
		{"missing text", &Request{SessionID: "s1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := o.HandleMessage(ctx, tc.req)
			if resp.Status != "error" {
				t.Errorf("status = %q, want error", resp.Status)
			}
		})
	}

	// Validation failures must not create sessions.
	if got, _ := store.Get("s1"); got != nil {
		t.Error("invalid request mutated session state")
	}
}

func TestHandleMessageScamFlow(t *testing.T) {
	o, store := newTestOrchestrator(t, "", 5)

	resp := o.HandleMessage(context.Background(), &Request{
		SessionID: "scam-1",
		Message:   session.Message{Text: scamText, Timestamp: time.Now()},
	})

	if resp.Status != "success" {
		t.Fatalf("status = %q (%s)", resp.Status, resp.Error)
	}
	if resp.Reply == nil {
		t.Fatal("expected an engagement reply")
	}

	sess, _ := store.Get("scam-1")
	if sess == nil {
		t.Fatal("session not created")
	}
	if !sess.ScamDetected {
		t.Error("verdict not persisted")
	}
	if !sess.Intel.HasAny() {
		t.Error("intelligence not extracted for a malicious message")
	}
	if sess.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", sess.MessageCount)
	}
	// Scammer turn plus gated agent reply.
	if len(sess.Messages) != 2 {
		t.Errorf("Messages = %d, want 2", len(sess.Messages))
	}
	if sess.Ended {
		t.Error("session must stay open while engaging")
	}
}

func TestHandleMessageBenignFlow(t *testing.T) {
	o, store := newTestOrchestrator(t, "", 5)

	resp := o.HandleMessage(context.Background(), &Request{
		SessionID: "benign-1",
		Message:   session.Message{Text: "hey, lunch tomorrow?", Timestamp: time.Now()},
	})

	if resp.Status != "success" {
		t.Fatalf("status = %q", resp.Status)
	}
	if resp.Reply != nil {
		t.Errorf("non-engagement must return a null reply, got %q", *resp.Reply)
	}

	sess, _ := store.Get("benign-1")
	if !sess.Ended {
		t.Error("disengaged session should be marked ended")
	}
	if sess.ScamDetected {
		t.Error("benign message flagged as scam")
	}
}

func TestHandleMessageSeedsProvidedHistory(t *testing.T) {
	o, store := newTestOrchestrator(t, "", 5)

	o.HandleMessage(context.Background(), &Request{
		SessionID: "seeded",
		Message:   session.Message{Text: scamText, Timestamp: time.Now()},
		ConversationHistory: []session.Message{
			{Sender: session.SenderScammer, Text: "hello sir", Timestamp: time.Now()},
			{Sender: session.SenderAgent, Text: "who is this?", Timestamp: time.Now()},
		},
	})

	sess, _ := store.Get("seeded")
	// Two seeded turns, the new scammer turn, and the agent reply.
	if len(sess.Messages) != 4 {
		t.Errorf("Messages = %d, want 4", len(sess.Messages))
	}
	if sess.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2 scammer turns", sess.MessageCount)
	}
}

func TestFullEngagementDispatchesOneReport(t *testing.T) {
	var calls int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	o, store := newTestOrchestrator(t, collector.URL, 2)
	ctx := context.Background()

	// Turn 1: scam pitch, engagement begins.
	r1 := o.HandleMessage(ctx, &Request{
		SessionID: "full",
		Message:   session.Message{Text: scamText, Timestamp: time.Now()},
	})
	if r1.Reply == nil {
		t.Fatal("turn 1 should engage")
	}

	// Turn 2: scammer signs off; wrap-up, end detection, report.
	r2 := o.HandleMessage(ctx, &Request{
		SessionID: "full",
		Message:   session.Message{Text: "okay we are done, goodbye", Timestamp: time.Now()},
	})
	if r2.Status != "success" {
		t.Fatalf("turn 2 status = %q (%s)", r2.Status, r2.Error)
	}
	if r2.Reply != nil {
		t.Errorf("turn 2 should disengage, got reply %q", *r2.Reply)
	}

	sess, _ := store.Get("full")
	if !sess.Ended || !sess.ReportSent {
		t.Errorf("ended=%v reportSent=%v, want both true", sess.Ended, sess.ReportSent)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("collector called %d times, want exactly 1", got)
	}

	// A duplicate sign-off must not produce a second report.
	o.HandleMessage(ctx, &Request{
		SessionID: "full",
		Message:   session.Message{Text: "okay we are done, goodbye", Timestamp: time.Now()},
	})
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("duplicate delivery re-sent the report: %d calls", got)
	}
}

func TestRepliesAlwaysPassGate(t *testing.T) {
	o, _ := newTestOrchestrator(t, "", 5)

	resp := o.HandleMessage(context.Background(), &Request{
		SessionID: "gated",
		Message:   session.Message{Text: scamText, Timestamp: time.Now()},
	})
	if resp.Reply == nil {
		t.Fatal("expected a reply")
	}
	if result := engage.CheckReply(*resp.Reply); !result.Passed {
		t.Errorf("outbound reply failed the gate: %s", result.Violation)
	}
}
