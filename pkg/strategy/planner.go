// Package strategy is the planner: given the session state and the latest
// scammer message it decides whether to keep engaging and with what
// conversation goal. The reply generator only ever sees the goal, never
// the collected intelligence.
package strategy

import (
	"context"
	"strings"

	"github.com/lurelab/decoy/pkg/session"
)

// Goal is the conversation objective handed to the reply generator.
type Goal string

const (
	GoalClarify  Goal = "clarify"
	GoalDelay    Goal = "delay"
	GoalEscalate Goal = "escalate"
	GoalWrapUp   Goal = "wrap_up"
	GoalContinue Goal = "continue"
)

// Decision is the planner output.
type Decision struct {
	ShouldEngage bool   `json:"shouldEngage"`
	Goal         Goal   `json:"goal"`
	Reasoning    string `json:"reasoning"`
}

// Planner decides the next conversation move. EndDetector may be nil, in
// which case the static keyword check is used directly.
type Planner struct {
	maxMessages    int
	minForEscalate int
	endDetector    EndDetector
}

// NewPlanner builds a planner. minForEscalate is the same threshold used
// for report eligibility; the goal state machine keys off it to decide
// when enough engagement has happened.
func NewPlanner(maxMessages, minForEscalate int, endDetector EndDetector) *Planner {
	return &Planner{
		maxMessages:    maxMessages,
		minForEscalate: minForEscalate,
		endDetector:    endDetector,
	}
}

// Decide runs the gates and the goal state machine for the latest scammer
// message.
func (p *Planner) Decide(ctx context.Context, sess *session.Session, messageText string) Decision {
	if sess.MessageCount >= p.maxMessages {
		return Decision{ShouldEngage: false, Goal: GoalWrapUp, Reasoning: "Maximum messages per session reached"}
	}
	if !sess.ScamDetected {
		return Decision{ShouldEngage: false, Goal: GoalWrapUp, Reasoning: "No scam detected"}
	}

	hasIntel := sess.Intel.HasAny()
	goal := p.determineGoal(messageText, sess, hasIntel)

	// End signals are only consulted once we were already going to wrap
	// up and the conversation has actually had an exchange.
	if goal == GoalWrapUp && sess.MessageCount > 1 {
		if p.shouldEnd(ctx, sess, messageText) {
			return Decision{ShouldEngage: false, Goal: GoalWrapUp, Reasoning: "Conversation end detected"}
		}
	}

	return Decision{ShouldEngage: true, Goal: goal, Reasoning: reasoningFor(goal, messageText)}
}

// determineGoal is the goal state machine. Precedence follows the
// engagement playbook: harvest first, escalate emotion once artifacts are
// in hand, wrap up when there is nothing left to extract.
func (p *Planner) determineGoal(messageText string, sess *session.Session, hasIntel bool) Goal {
	lower := strings.ToLower(messageText)

	// Still harvesting: respond to what the scammer is pushing for.
	if !hasIntel || sess.MessageCount < p.minForEscalate {
		switch {
		case strings.Contains(lower, "upi"):
			return GoalClarify
		case strings.Contains(lower, "link"), strings.Contains(lower, "click"), strings.Contains(lower, "verify"):
			return GoalClarify
		case strings.Contains(lower, "urgent"), strings.Contains(lower, "immediately"):
			return GoalDelay
		default:
			return GoalContinue
		}
	}

	// Artifacts in hand: escalate concern when the scammer keeps pushing
	// for payment.
	if hasIntel && sess.MessageCount >= 2 {
		if strings.Contains(lower, "upi") || strings.Contains(lower, "send") {
			return GoalEscalate
		}
	}

	if sess.MessageCount < p.minForEscalate {
		if strings.Contains(lower, "upi") || strings.Contains(lower, "account") {
			return GoalEscalate
		}
		return GoalContinue
	}

	return GoalWrapUp
}

// shouldEnd applies the active-ask veto before any end detection runs: a
// message that is still asking the victim for something never ends the
// conversation, whatever a model might say.
func (p *Planner) shouldEnd(ctx context.Context, sess *session.Session, messageText string) bool {
	if containsActiveAsk(messageText) {
		return false
	}
	if p.endDetector != nil {
		return p.endDetector.ShouldEnd(ctx, sess, messageText)
	}
	return staticEndCheck(messageText)
}

func reasoningFor(goal Goal, messageText string) string {
	lower := strings.ToLower(messageText)

	switch goal {
	case GoalClarify:
		if strings.Contains(lower, "upi") {
			return "Need to extract UPI ID - asking clarifying questions to delay"
		}
		if strings.Contains(lower, "link") {
			return "Phishing link detected - asking for more information"
		}
		return "Need more intelligence - asking clarifying questions"
	case GoalDelay:
		return "Creating delay to extract more intelligence while maintaining engagement"
	case GoalEscalate:
		return "Showing increased concern to maintain engagement and extract more intelligence"
	case GoalContinue:
		return "Continuing normal engagement to extract intelligence"
	default:
		return "Sufficient intelligence gathered or conversation should end"
	}
}
