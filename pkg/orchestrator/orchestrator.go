// Package orchestrator sequences the full per-message pipeline: classify,
// persist the verdict, extract and merge intelligence, plan the next move,
// generate and gate the reply, and conditionally dispatch the final report.
// Everything that touches one session runs inside a single store Update so
// concurrent requests for the same session are fully serialized.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lurelab/decoy/pkg/detect"
	"github.com/lurelab/decoy/pkg/engage"
	"github.com/lurelab/decoy/pkg/intel"
	"github.com/lurelab/decoy/pkg/report"
	"github.com/lurelab/decoy/pkg/semantic"
	"github.com/lurelab/decoy/pkg/session"
	"github.com/lurelab/decoy/pkg/strategy"
)

// Request is the inbound message contract from the transport layer.
type Request struct {
	SessionID           string            `json:"sessionId"`
	Message             session.Message   `json:"message"`
	ConversationHistory []session.Message `json:"conversationHistory,omitempty"`
	Metadata            *Metadata         `json:"metadata,omitempty"`
}

// Metadata carries optional channel hints from the transport.
type Metadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Response is the reply contract. A null reply signals deliberate
// non-engagement, not failure.
type Response struct {
	Status string  `json:"status"`
	Reply  *string `json:"reply"`
	Error  string  `json:"error,omitempty"`
}

// Orchestrator wires the pipeline components together.
type Orchestrator struct {
	store      session.Store
	engine     detect.Classifier
	extractor  *intel.Extractor
	planner    *strategy.Planner
	replier    engage.Replier
	dispatcher *report.Dispatcher
	semantic   *semantic.Detector // Optional supplementary signal
}

// New builds the orchestrator. semanticDetector may be nil.
func New(
	store session.Store,
	engine detect.Classifier,
	extractor *intel.Extractor,
	planner *strategy.Planner,
	replier engage.Replier,
	dispatcher *report.Dispatcher,
	semanticDetector *semantic.Detector,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		engine:     engine,
		extractor:  extractor,
		planner:    planner,
		replier:    replier,
		dispatcher: dispatcher,
		semantic:   semanticDetector,
	}
}

// HandleMessage runs the pipeline for one inbound message.
func (o *Orchestrator) HandleMessage(ctx context.Context, req *Request) *Response {
	if err := validate(req); err != nil {
		return &Response{Status: "error", Error: err.Error()}
	}

	traceID := uuid.NewString()
	log.Printf("[PIPELINE] trace=%s session=%s processing message", traceID, req.SessionID)

	var reply *string
	err := o.store.Update(req.SessionID, func(sess *session.Session) error {
		// Seed the session from client-provided history on first contact
		// so mid-conversation handoffs still have context.
		if len(sess.Messages) == 0 && len(req.ConversationHistory) > 0 {
			for _, m := range req.ConversationHistory {
				sess.AppendMessage(m)
			}
		}

		history := sess.ScammerTexts()

		msg := req.Message
		msg.Sender = session.SenderScammer
		sess.AppendMessage(msg)

		// Classification never fails: the engine falls back to the rule
		// scorer internally.
		verdict, _ := o.engine.Classify(ctx, msg.Text, history)
		sess.RecordVerdict(verdict.IsMalicious, string(verdict.Method), verdict.Confidence, verdict.Reason)
		if verdict.IsMalicious {
			sess.AddNote(verdict.Reason)
		}
		log.Printf("[PIPELINE] trace=%s session=%s verdict method=%s malicious=%t confidence=%.2f",
			traceID, req.SessionID, verdict.Method, verdict.IsMalicious, verdict.Confidence)

		if sess.ScamDetected {
			// Extraction is an isolated failure domain: it never errors,
			// worst case is an empty result.
			extracted := o.extractor.Extract(msg.Text, history)
			sess.Intel.Merge(extracted)

			o.annotateSemantic(ctx, sess, msg.Text, traceID)
		}

		decision := o.planner.Decide(ctx, sess, msg.Text)
		sess.CurrentGoal = string(decision.Goal)
		log.Printf("[PIPELINE] trace=%s session=%s engage=%t goal=%s reasoning=%q",
			traceID, req.SessionID, decision.ShouldEngage, decision.Goal, decision.Reasoning)

		if decision.ShouldEngage {
			generated := o.replier.Reply(ctx, sess, msg.Text, decision)
			gated := generated
			if result := engage.CheckReply(generated); !result.Passed {
				log.Printf("[PIPELINE] trace=%s session=%s reply failed safety gate: %s",
					traceID, req.SessionID, result.Violation)
				sess.AddNote("Reply substituted: " + result.Violation)
				gated = engage.FallbackReply
			}
			sess.AppendMessage(session.Message{
				Sender:    session.SenderAgent,
				Text:      gated,
				Timestamp: time.Now().UTC(),
			})
			reply = &gated

			if decision.Goal == strategy.GoalWrapUp {
				sess.MarkEnded()
			}
		} else {
			sess.MarkEnded()
		}

		// Dispatch inside the session lock: the eligibility check and the
		// reportSent transition must be atomic.
		if sess.Ended {
			_ = o.dispatcher.MaybeSend(ctx, sess)
		}

		return nil
	})
	if err != nil {
		log.Printf("[PIPELINE] trace=%s session=%s pipeline error: %v", traceID, req.SessionID, err)
		return &Response{Status: "error", Error: err.Error()}
	}

	return &Response{Status: "success", Reply: reply}
}

// annotateSemantic adds an analyst note when the message closely matches a
// known scam exemplar. Purely supplementary, never part of the verdict.
func (o *Orchestrator) annotateSemantic(ctx context.Context, sess *session.Session, text, traceID string) {
	if o.semantic == nil || !o.semantic.IsReady() {
		return
	}
	match, err := o.semantic.Detect(ctx, text)
	if err != nil {
		log.Printf("[PIPELINE] trace=%s semantic detection failed: %v", traceID, err)
		return
	}
	if match != nil && match.IsMatch {
		sess.AddNote(fmt.Sprintf("Semantic match: %s campaign (similarity=%.2f)", match.Category, match.Similarity))
	}
}

func validate(req *Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	if req.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	if req.Message.Text == "" {
		return fmt.Errorf("message text is required")
	}
	return nil
}
