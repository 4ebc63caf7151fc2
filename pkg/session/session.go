// Package session holds per-conversation engagement state and the stores
// that persist it. All state transitions happen under the store's
// per-session lock via Update, which is what makes the one-way flags and
// the report-sent guard safe under concurrent requests.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lurelab/decoy/pkg/intel"
)

// Sender values on the wire.
const (
	SenderScammer = "scammer"
	SenderAgent   = "user"
)

// Message is one conversation turn.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// messageWire accepts the inbound wire shape: timestamp may be an epoch
// milliseconds integer, an ISO-8601 string, or absent.
type messageWire struct {
	Sender    string          `json:"sender"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// UnmarshalJSON tolerates the timestamp variants seen in practice. An
// unparseable or missing timestamp falls back to the receive time rather
// than rejecting the message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Sender = w.Sender
	m.Text = w.Text
	m.Timestamp = parseTimestamp(w.Timestamp)
	return nil
}

func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Now().UTC()
	}

	var epochMs int64
	if err := json.Unmarshal(raw, &epochMs); err == nil {
		return time.UnixMilli(epochMs).UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
			if t, perr := time.Parse(layout, s); perr == nil {
				return t.UTC()
			}
		}
	}

	return time.Now().UTC()
}

// Session is the full engagement state for one conversation.
type Session struct {
	ID           string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`

	Messages     []Message `json:"messages"`
	MessageCount int       `json:"messageCount"` // Scammer messages processed

	// Detection audit. ScamDetected is one-way: once true it stays true
	// even if later messages look benign.
	ScamDetected        bool    `json:"scamDetected"`
	DetectionMethod     string  `json:"detectionMethod,omitempty"`
	DetectionConfidence float64 `json:"detectionConfidence,omitempty"`
	DetectionReason     string  `json:"detectionReason,omitempty"`

	Intel intel.ExtractedIntelligence `json:"intel"`

	CurrentGoal string   `json:"currentGoal,omitempty"`
	Notes       []string `json:"notes,omitempty"`

	Ended      bool `json:"ended"`
	ReportSent bool `json:"reportSent"`
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		Intel:        intel.NewIntelligence(),
	}
}

// AppendMessage records a turn and bumps activity. Scammer turns count
// toward the engagement total.
func (s *Session) AppendMessage(m Message) {
	s.Messages = append(s.Messages, m)
	s.LastActivity = time.Now().UTC()
	if m.Sender == SenderScammer {
		s.MessageCount++
	}
}

// RecordVerdict latches the scam flag and keeps the strongest audit trail.
// The flag never transitions back to false.
func (s *Session) RecordVerdict(isMalicious bool, method string, confidence float64, reason string) {
	if isMalicious && !s.ScamDetected {
		s.ScamDetected = true
		s.DetectionMethod = method
		s.DetectionConfidence = confidence
		s.DetectionReason = reason
	}
}

// AddNote appends an analyst-facing note, skipping empty and duplicate
// entries.
func (s *Session) AddNote(note string) {
	if note == "" {
		return
	}
	for _, n := range s.Notes {
		if n == note {
			return
		}
	}
	s.Notes = append(s.Notes, note)
}

// MarkEnded is one-way.
func (s *Session) MarkEnded() {
	s.Ended = true
}

// MarkReportSent is one-way. It returns an error if the report was already
// sent, which callers use as the idempotency guard.
func (s *Session) MarkReportSent() error {
	if s.ReportSent {
		return fmt.Errorf("report already sent for session %s", s.ID)
	}
	s.ReportSent = true
	return nil
}

// Clone returns a deep copy. Snapshots handed outside the store lock must
// not share the message slice, notes, or intel sets with live state.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.Notes = append([]string(nil), s.Notes...)
	c.Intel = intel.NewIntelligence()
	c.Intel.Merge(s.Intel)
	return &c
}

// ScammerTexts returns the scammer-side message texts in order, the shape
// the classifier and extractor take as history.
func (s *Session) ScammerTexts() []string {
	texts := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Sender == SenderScammer {
			texts = append(texts, m.Text)
		}
	}
	return texts
}
