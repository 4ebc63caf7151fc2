// Package semantic provides embedding-based similarity matching against a
// curated corpus of known scam openers. It is a supplementary signal for
// analyst notes, never a decision input: the classification verdict comes
// from the detection engine alone.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lurelab/decoy/pkg/httputil"
)

// ScamExemplar is a single known scam message with metadata.
type ScamExemplar struct {
	Text     string
	Category string
	Language string
}

// Detector wraps an in-process vector store of scam exemplars.
type Detector struct {
	db         *chromem.DB
	collection *chromem.Collection
	threshold  float32
	mu         sync.RWMutex
	ready      bool
}

// Match is the best exemplar hit for a queried message.
type Match struct {
	Text       string
	Category   string
	Language   string
	Similarity float32
	IsMatch    bool // True if Similarity >= threshold
}

// NewDetector creates a detector backed by Ollama embeddings, or an error
// when the collection cannot be created. Callers treat a nil detector as
// "semantic signal disabled".
func NewDetector(ollamaURL string) (*Detector, error) {
	db := chromem.NewDB()

	collection, err := db.CreateCollection("scam_exemplars", nil, newOllamaEmbeddingFunc("embeddinggemma", ollamaURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &Detector{
		db:         db,
		collection: collection,
		threshold:  0.7,
	}, nil
}

// newOllamaEmbeddingFunc builds an embedding function against Ollama's
// /api/embeddings endpoint.
func newOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.Client(30 * time.Second)

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody := map[string]string{"model": model, "prompt": text}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(baseURL, "/")+"/api/embeddings", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("embedding API error %d", resp.StatusCode)
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
		return result.Embedding, nil
	}
}

// LoadExemplars embeds the exemplar corpus into the vector store. Uses one
// worker so a local Ollama instance is not overwhelmed.
func (d *Detector) LoadExemplars(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	exemplars := scamExemplars()
	docs := make([]chromem.Document, len(exemplars))
	for i, e := range exemplars {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("exemplar_%d", i),
			Content: e.Text,
			Metadata: map[string]string{
				"category": e.Category,
				"language": e.Language,
			},
		}
	}

	if err := d.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add exemplars: %w", err)
	}

	d.ready = true
	return nil
}

// Detect returns the closest exemplar for the message, or nil when the
// detector is not initialized.
func (d *Detector) Detect(ctx context.Context, text string) (*Match, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.ready {
		return nil, fmt.Errorf("semantic detector not initialized, call LoadExemplars first")
	}

	results, err := d.collection.Query(ctx, strings.ToLower(text), 3, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if len(results) == 0 {
		return &Match{}, nil
	}

	best := results[0]
	category := best.Metadata["category"]
	return &Match{
		Text:       best.Content,
		Category:   category,
		Language:   best.Metadata["language"],
		Similarity: best.Similarity,
		IsMatch:    best.Similarity >= d.threshold && category != "benign",
	}, nil
}

// IsReady reports whether the exemplar corpus has been loaded.
func (d *Detector) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// SetThreshold updates the similarity threshold.
func (d *Detector) SetThreshold(t float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = t
}

var (
	cachedExemplars     []ScamExemplar
	cachedExemplarsOnce sync.Once
)

// scamExemplars returns the curated corpus of known scam openers observed
// across Indian payment-fraud campaigns.
func scamExemplars() []ScamExemplar {
	cachedExemplarsOnce.Do(func() {
		cachedExemplars = []ScamExemplar{
			// Account-suspension / KYC pressure
			{"Your bank account will be blocked today, verify immediately", "account_suspension", "en"},
			{"Dear customer your KYC has expired, update now to avoid suspension", "account_suspension", "en"},
			{"Your account has been temporarily suspended due to suspicious activity", "account_suspension", "en"},
			{"Complete your KYC verification within 24 hours or lose access", "account_suspension", "en"},
			{"RBI alert: your account will be frozen unless you verify your details", "account_suspension", "en"},

			// Reward / lottery bait
			{"Congratulations! You have won a lottery of 25 lakh rupees", "reward_bait", "en"},
			{"You are the lucky winner of our cashback offer, claim your prize now", "reward_bait", "en"},
			{"You have been selected for a free gift worth 10000 rupees", "reward_bait", "en"},
			{"Claim your KBC lottery prize by paying a small processing fee", "reward_bait", "en"},

			// Payment-collection asks
			{"Send 500 rupees to this UPI ID to release your parcel", "payment_request", "en"},
			{"Share your UPI PIN to receive the refund", "payment_request", "en"},
			{"Scan this QR code to get your cashback credited", "payment_request", "en"},
			{"Transfer the registration amount to confirm your job offer", "payment_request", "en"},

			// Credential phishing
			{"Click this link to verify your account details", "phishing", "en"},
			{"Update your net banking password using the secure link below", "phishing", "en"},
			{"Your debit card has been deactivated, click here to reactivate", "phishing", "en"},
			{"Share the OTP you just received to complete verification", "phishing", "en"},

			// Impersonation
			{"I am calling from your bank's fraud department", "impersonation", "en"},
			{"This is customs office, your parcel contains illegal items, pay the fine", "impersonation", "en"},
			{"Your electricity will be disconnected tonight, call this number", "impersonation", "en"},

			// Hindi variants
			{"आपका खाता आज ब्लॉक हो जाएगा, तुरंत सत्यापित करें", "account_suspension", "hi"},
			{"बधाई हो! आपने 25 लाख की लॉटरी जीती है", "reward_bait", "hi"},
			{"रिफंड पाने के लिए अपना UPI पिन साझा करें", "payment_request", "hi"},

			// Benign anchors for false positive control
			{"Hey, are we still meeting for lunch tomorrow", "benign", "en"},
			{"Your order has been shipped and will arrive on Friday", "benign", "en"},
			{"Thanks for the payment, see you next week", "benign", "en"},
			{"Can you send me the notes from today's class", "benign", "en"},
		}
	})
	return cachedExemplars
}

// ExemplarCount returns the size of the loaded corpus.
func (d *Detector) ExemplarCount() int {
	return len(scamExemplars())
}
