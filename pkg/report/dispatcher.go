// Package report delivers the final intelligence summary for an ended
// engagement to the external collector. Dispatch is best-effort and
// idempotent: the session's reportSent flag is the primary guard and a
// process-local sent set backstops it within one process lifetime.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lurelab/decoy/pkg/httputil"
	"github.com/lurelab/decoy/pkg/session"
)

// Payload is the collector wire contract.
type Payload struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  Intelligence `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`
}

// Intelligence is the set-to-array projection of the session intel.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Dispatcher posts reports to the collector endpoint.
type Dispatcher struct {
	url         string
	minMessages int
	client      *http.Client

	mu   sync.Mutex
	sent map[string]struct{}
}

// NewDispatcher builds a dispatcher. An empty URL disables dispatch; timeout
// is the total per-request budget.
func NewDispatcher(url string, minMessages int, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		url:         url,
		minMessages: minMessages,
		client:      httputil.Client(timeout),
		sent:        make(map[string]struct{}),
	}
}

// Eligible reports whether the session has anything worth reporting. The
// reportSent flag and the process-local sent set are checked separately in
// MaybeSend.
func (d *Dispatcher) Eligible(sess *session.Session) bool {
	return sess.Ended &&
		sess.ScamDetected &&
		sess.MessageCount >= d.minMessages &&
		sess.Intel.HasAny()
}

// MaybeSend dispatches the report for an eligible session. It must be
// called under the session's store lock: on a 200/201 response it marks
// reportSent on the session, making the NotSent to Sent transition atomic
// with respect to concurrent requests. Already-sent sessions are a no-op
// success with no network call. Failures are logged and returned but never
// retried.
func (d *Dispatcher) MaybeSend(ctx context.Context, sess *session.Session) error {
	if sess.ReportSent || !d.Eligible(sess) {
		return nil
	}

	d.mu.Lock()
	if _, done := d.sent[sess.ID]; done {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if d.url == "" {
		log.Printf("[REPORT] no collector URL configured, skipping dispatch for session %s", sess.ID)
		return nil
	}

	if err := d.post(ctx, buildPayload(sess)); err != nil {
		log.Printf("[REPORT] dispatch failed for session %s: %v", sess.ID, err)
		return err
	}

	if err := sess.MarkReportSent(); err != nil {
		return err
	}
	d.mu.Lock()
	d.sent[sess.ID] = struct{}{}
	d.mu.Unlock()

	log.Printf("[REPORT] report delivered for session %s (%d messages, %d artifacts)",
		sess.ID, sess.MessageCount, sess.Intel.Total())
	return nil
}

func (d *Dispatcher) post(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("payload encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("collector unreachable: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("collector rejected report: status %d", resp.StatusCode)
	}
	return nil
}

func buildPayload(sess *session.Session) Payload {
	notes := "No specific notes"
	if len(sess.Notes) > 0 {
		notes = strings.Join(sess.Notes, "; ")
	}

	return Payload{
		SessionID:              sess.ID,
		ScamDetected:           sess.ScamDetected,
		TotalMessagesExchanged: sess.MessageCount,
		ExtractedIntelligence: Intelligence{
			BankAccounts:       sess.Intel.BankAccounts.Values(),
			UPIIDs:             sess.Intel.UPIIDs.Values(),
			PhishingLinks:      sess.Intel.PhishingLinks.Values(),
			PhoneNumbers:       sess.Intel.PhoneNumbers.Values(),
			SuspiciousKeywords: sess.Intel.SuspiciousKeywords.Values(),
		},
		AgentNotes: notes,
	}
}
