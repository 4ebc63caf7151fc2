package engage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lurelab/decoy/pkg/llm"
	"github.com/lurelab/decoy/pkg/session"
	"github.com/lurelab/decoy/pkg/strategy"
)

// Replier generates the persona reply for one turn. Implementations must
// not fail visibly: on any error they return a safe canned reply.
type Replier interface {
	Reply(ctx context.Context, sess *session.Session, messageText string, decision strategy.Decision) string
}

const personaBasePrompt = `You are an ordinary person who received a message about a bank or account issue.

PERSONA:
- You are polite, slightly worried, and cooperative.
- You are not very technical.
- You use simple, everyday English.
- Your replies are short (usually 1-2 sentences).

STRICT RULES:
- Never say you are an AI, system, bot, or detector.
- Never mention analysis, rules, or confidence.
- Never share or confirm sensitive information (OTP, PIN, UPI ID, account number).
- Never instruct anyone to make a payment or transfer money.

BEHAVIOR GUIDELINES:
- Sound unsure or confused, not aggressive.
- Prefer questions over statements.
- Avoid repeating the same sentence structure.
- Keep responses natural and human.

Return ONLY the reply text. Do not include explanations.`

var goalInstructions = map[strategy.Goal]string{
	strategy.GoalClarify: `
Current goal: Ask for clarification.
- Ask one simple question.
- Show mild concern or confusion.
- Do not agree to any action.`,
	strategy.GoalDelay: `
Current goal: Delay politely.
- Say you need time or need to check.
- Keep tone calm and reasonable.`,
	strategy.GoalEscalate: `
Current goal: Show increased concern.
- Express worry.
- Ask what needs to be done.
- Do not commit to anything.`,
	strategy.GoalContinue: `
Current goal: Continue the conversation naturally.
- Respond briefly.
- Ask a relevant follow-up if needed.`,
	strategy.GoalWrapUp: `
Current goal: End the conversation politely.
- Be firm but respectful.
- Example: "I'll check with my bank directly. Thank you."`,
}

const personaHistoryWindow = 8

// LLMReplier generates persona replies through the chat client, falling
// back to canned replies on any failure.
type LLMReplier struct {
	client   *llm.Client
	fallback CannedReplier
}

// NewLLMReplier returns nil when no client is configured.
func NewLLMReplier(client *llm.Client) *LLMReplier {
	if client == nil {
		return nil
	}
	return &LLMReplier{client: client}
}

func (r *LLMReplier) Reply(ctx context.Context, sess *session.Session, messageText string, decision strategy.Decision) string {
	instruction, ok := goalInstructions[decision.Goal]
	if !ok {
		instruction = goalInstructions[strategy.GoalContinue]
	}

	content, err := r.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: personaBasePrompt + "\n" + instruction},
		{Role: "user", Content: buildPersonaContext(sess, messageText)},
	}, llm.CompleteOptions{Temperature: 0.7, MaxTokens: 120})
	if err != nil {
		log.Printf("[ENGAGE] reply generation failed for session %s, using canned reply: %v", sess.ID, err)
		return r.fallback.Reply(ctx, sess, messageText, decision)
	}

	reply := cleanReply(content)
	if reply == "" {
		return r.fallback.Reply(ctx, sess, messageText, decision)
	}
	return reply
}

func buildPersonaContext(sess *session.Session, messageText string) string {
	var b strings.Builder

	if len(sess.Messages) > 0 {
		b.WriteString("Previous conversation:\n")
		start := len(sess.Messages) - personaHistoryWindow
		if start < 0 {
			start = 0
		}
		for _, m := range sess.Messages[start:] {
			if m.Sender == session.SenderScammer {
				fmt.Fprintf(&b, "Scammer: %s\n", m.Text)
			} else {
				fmt.Fprintf(&b, "You: %s\n", m.Text)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Current message from scammer: %s\n\n", messageText)
	b.WriteString("Your response (be natural, varied, and don't repeat previous responses):")
	return b.String()
}

var replyPrefixes = []string{"response:", "reply:", "your response:", "here's your response:"}

// cleanReply strips surrounding quotes and explanation prefixes the model
// sometimes adds despite instructions.
func cleanReply(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		if (text[0] == '"' && text[len(text)-1] == '"') || (text[0] == '\'' && text[len(text)-1] == '\'') {
			text = text[1 : len(text)-1]
		}
	}
	for _, prefix := range replyPrefixes {
		if strings.HasPrefix(strings.ToLower(text), prefix) {
			text = strings.TrimSpace(text[len(prefix):])
		}
	}
	return strings.TrimSpace(text)
}

// CannedReplier produces deterministic per-goal replies. It is the full
// replier when no LLM is configured and the fallback otherwise.
type CannedReplier struct{}

func (CannedReplier) Reply(_ context.Context, _ *session.Session, messageText string, decision strategy.Decision) string {
	lower := strings.ToLower(messageText)

	switch decision.Goal {
	case strategy.GoalClarify:
		switch {
		case strings.Contains(lower, "upi"):
			return "I'm not comfortable sharing my UPI ID. Is there another way to verify?"
		case strings.Contains(lower, "link"), strings.Contains(lower, "click"):
			return "I'm not sure about clicking links. Can you tell me more about this?"
		case strings.Contains(lower, "verify"):
			return "How do I verify? Can you explain the process step by step?"
		default:
			return "I see. Can you provide more details about this?"
		}
	case strategy.GoalDelay:
		if strings.Contains(lower, "urgent") || strings.Contains(lower, "immediately") {
			return "I'm at work right now. Can you explain what I need to do? I need a few minutes to understand this."
		}
		return "I need to check something first. Can you give me more information about this?"
	case strategy.GoalEscalate:
		if strings.Contains(lower, "blocked") || strings.Contains(lower, "suspended") {
			return "This is really worrying. What exactly do I need to do to prevent this? I want to fix this immediately."
		}
		return "I'm concerned about this. What should I do next?"
	case strategy.GoalContinue:
		switch {
		case strings.Contains(lower, "blocked"), strings.Contains(lower, "suspended"):
			return "Why is my account being blocked? What did I do wrong?"
		case strings.Contains(lower, "verify"):
			return "How do I verify? Can you explain the process?"
		default:
			return "I see. Can you provide more details about this?"
		}
	default:
		return "I'll check with my bank directly. Thanks for letting me know."
	}
}

var (
	_ Replier = (*LLMReplier)(nil)
	_ Replier = CannedReplier{}
)
