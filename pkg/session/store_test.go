package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestUpdateCreatesSessionLazily(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()

	err := store.Update("sess-1", func(s *Session) error {
		if s.ID != "sess-1" {
			t.Errorf("session ID = %q, want sess-1", s.ID)
		}
		s.AppendMessage(Message{Sender: SenderScammer, Text: "hi", Timestamp: time.Now()})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get("sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.MessageCount != 1 {
		t.Fatalf("session not persisted: %+v", got)
	}
}

func TestUpdateRequiresSessionID(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()

	if err := store.Update("", func(*Session) error { return nil }); err == nil {
		t.Error("empty session ID should be rejected")
	}
}

func TestGetUnknownSessionReturnsNil(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()

	got, err := store.Get("nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("unknown session should be nil, got %+v", got)
	}
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = store.Update("shared", func(s *Session) error {
				s.AppendMessage(Message{Sender: SenderScammer, Text: "m", Timestamp: time.Now()})
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := store.Get("shared")
	if got.MessageCount != workers {
		t.Errorf("MessageCount = %d, want %d (lost updates)", got.MessageCount, workers)
	}
}

func TestOneWayFlags(t *testing.T) {
	s := New("s")

	s.MarkEnded()
	if !s.Ended {
		t.Fatal("MarkEnded did not set the flag")
	}

	if err := s.MarkReportSent(); err != nil {
		t.Fatalf("first MarkReportSent: %v", err)
	}
	if err := s.MarkReportSent(); err == nil {
		t.Error("second MarkReportSent should error")
	}
	if !s.ReportSent {
		t.Error("ReportSent flag must stay true")
	}
}

func TestRecordVerdictLatches(t *testing.T) {
	s := New("s")

	s.RecordVerdict(true, "llm", 0.9, "scam")
	s.RecordVerdict(false, "rule_fallback", 0.1, "benign follow-up")

	if !s.ScamDetected {
		t.Error("scam flag must never transition back to false")
	}
	if s.DetectionMethod != "llm" {
		t.Errorf("audit fields overwritten: method = %q", s.DetectionMethod)
	}
}

func TestMessageCountOnlyCountsScammerTurns(t *testing.T) {
	s := New("s")
	s.AppendMessage(Message{Sender: SenderScammer, Text: "give upi", Timestamp: time.Now()})
	s.AppendMessage(Message{Sender: SenderAgent, Text: "why?", Timestamp: time.Now()})

	if s.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", s.MessageCount)
	}
	if len(s.Messages) != 2 {
		t.Errorf("Messages length = %d, want 2", len(s.Messages))
	}
}

func TestExpiredSessionInvisibleToGet(t *testing.T) {
	store := NewInMemoryStore(WithMaxAge(10*time.Millisecond), WithCleanupInterval(time.Hour))
	defer store.Close()

	_ = store.Update("old", func(s *Session) error {
		s.LastActivity = time.Now().Add(-time.Minute)
		return nil
	})

	got, _ := store.Get("old")
	if got != nil {
		t.Error("expired session should be treated as absent")
	}
}

func TestReaperDoesNotRaceWithUpdates(t *testing.T) {
	// An aggressive reaper sweeping while updates run must not trip the
	// race detector or corrupt state; an entry mid-Update is skipped.
	store := NewInMemoryStore(WithMaxAge(time.Nanosecond), WithCleanupInterval(time.Millisecond))
	defer store.Close()

	const workers = 4
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = store.Update("churn", func(s *Session) error {
					s.AppendMessage(Message{Sender: SenderScammer, Text: "m", Timestamp: time.Now()})
					return nil
				})
			}
		}()
	}
	wg.Wait()
}

func TestGetSnapshotIsolatedFromLiveSession(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()

	_ = store.Update("snap", func(s *Session) error {
		s.AppendMessage(Message{Sender: SenderScammer, Text: "first", Timestamp: time.Now()})
		s.Intel.UPIIDs.Add("a@paytm")
		s.AddNote("note one")
		return nil
	})

	snapshot, err := store.Get("snap")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	_ = store.Update("snap", func(s *Session) error {
		s.AppendMessage(Message{Sender: SenderScammer, Text: "second", Timestamp: time.Now()})
		s.Intel.UPIIDs.Add("b@paytm")
		s.AddNote("note two")
		return nil
	})

	if len(snapshot.Messages) != 1 {
		t.Errorf("snapshot Messages = %d, want 1 (shares slice with live session)", len(snapshot.Messages))
	}
	if snapshot.Intel.UPIIDs.Len() != 1 {
		t.Errorf("snapshot UPIIDs = %d, want 1 (shares set with live session)", snapshot.Intel.UPIIDs.Len())
	}
	if len(snapshot.Notes) != 1 {
		t.Errorf("snapshot Notes = %d, want 1", len(snapshot.Notes))
	}
}

func TestMessageTimestampParsing(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    time.Time
		nowFall bool
	}{
		{
			name:    "epoch milliseconds",
			payload: `{"sender":"scammer","text":"hi","timestamp":1700000000000}`,
			want:    time.UnixMilli(1700000000000).UTC(),
		},
		{
			name:    "ISO-8601",
			payload: `{"sender":"scammer","text":"hi","timestamp":"2024-05-01T10:30:00Z"}`,
			want:    time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:    "ISO-8601 without zone",
			payload: `{"sender":"scammer","text":"hi","timestamp":"2024-05-01T10:30:00"}`,
			want:    time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:    "missing timestamp falls back to now",
			payload: `{"sender":"scammer","text":"hi"}`,
			nowFall: true,
		},
		{
			name:    "garbage timestamp falls back to now",
			payload: `{"sender":"scammer","text":"hi","timestamp":"not-a-time"}`,
			nowFall: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var m Message
			if err := json.Unmarshal([]byte(tc.payload), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if tc.nowFall {
				if time.Since(m.Timestamp) > time.Minute {
					t.Errorf("fallback timestamp not near now: %v", m.Timestamp)
				}
				return
			}
			if !m.Timestamp.Equal(tc.want) {
				t.Errorf("timestamp = %v, want %v", m.Timestamp, tc.want)
			}
		})
	}
}

func TestAddNoteDeduplicates(t *testing.T) {
	s := New("s")
	s.AddNote("seen phishing link")
	s.AddNote("seen phishing link")
	s.AddNote("")

	if len(s.Notes) != 1 {
		t.Errorf("Notes = %v, want a single entry", s.Notes)
	}
}
