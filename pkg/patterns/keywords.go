package patterns

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Keyword lists used by the rule scorer, the strategy planner and the
// response gate. All matching is lowercase substring matching against
// lowercased input. Defaults can be overridden per-deployment from a
// keywords.yaml file (see LoadKeywordOverrides).

// keywordSet holds every tunable keyword list.
type keywordSet struct {
	// Multi-word phrases that strongly indicate a scam pitch.
	Scam []string `yaml:"scam_keywords"`
	// Single suspicious words harvested as intelligence.
	Suspicious []string `yaml:"suspicious_keywords"`
	// Reward/lottery bait phrases (flat-score category).
	Reward []string `yaml:"reward_keywords"`
	// Phrases signalling the counterpart is done talking.
	ConversationEnd []string `yaml:"conversation_end_keywords"`
	// Phrases showing the counterpart is still actively working the scam.
	// A message containing one of these never ends the conversation.
	ActiveAsk []string `yaml:"active_ask_keywords"`
	// Phrases that must never appear in an outbound reply.
	Denylist []string `yaml:"denylist_phrases"`
}

func defaultKeywords() *keywordSet {
	return &keywordSet{
		Scam: []string{
			"verify immediately", "account blocked", "suspended",
			"click here", "verify now", "urgent action required",
			"your account", "will be blocked", "avoid suspension",
			"share your", "send otp", "verify your identity",
			"winning prize", "congratulations", "claim now",
			"free money", "lottery winner", "inheritance",
			"tax refund", "government benefit",
		},
		Suspicious: []string{
			"urgent", "verify", "blocked", "suspended", "immediately",
			"click here", "verify now", "account", "upi", "otp",
			"share", "send", "provide", "winning", "prize", "free",
		},
		Reward: []string{
			"won a prize", "won cash", "cash prize", "you have won",
			"you won", "lottery", "congratulations", "claim your prize",
			"free money", "cash reward", "reward amount",
		},
		ConversationEnd: []string{
			"bye", "goodbye", "thank you", "thanks", "done", "finished",
		},
		ActiveAsk: []string{
			"verify", "verify immediately", "blocked", "suspended", "share",
			"send", "provide", "click", "link", "upi", "account", "urgent",
			"immediately", "now", "asap", "required", "must", "need to",
		},
		Denylist: []string{
			"i am an ai", "i'm an ai", "i'm a bot", "detection system",
			"honeypot", "i'm detecting", "i'm analyzing", "intelligence",
			"gathered intelligence", "extracted", "confidence score",
			"rule-based", "scam detection", "i'm a system", "automated",
			"our system", "the system", "impersonate", "pretend to be",
			"illegal", "harass", "threaten",
		},
	}
}

var (
	keywordsMu sync.RWMutex
	keywords   = defaultKeywords()
)

// ScamKeywords returns the multi-word scam pitch phrases.
func ScamKeywords() []string {
	keywordsMu.RLock()
	defer keywordsMu.RUnlock()
	return keywords.Scam
}

// SuspiciousKeywords returns the single-word suspicious vocabulary.
func SuspiciousKeywords() []string {
	keywordsMu.RLock()
	defer keywordsMu.RUnlock()
	return keywords.Suspicious
}

// RewardKeywords returns reward/lottery bait phrases.
func RewardKeywords() []string {
	keywordsMu.RLock()
	defer keywordsMu.RUnlock()
	return keywords.Reward
}

// ConversationEndKeywords returns the static end-of-conversation phrases.
func ConversationEndKeywords() []string {
	keywordsMu.RLock()
	defer keywordsMu.RUnlock()
	return keywords.ConversationEnd
}

// ActiveAskKeywords returns phrases that veto end-of-conversation detection.
func ActiveAskKeywords() []string {
	keywordsMu.RLock()
	defer keywordsMu.RUnlock()
	return keywords.ActiveAsk
}

// DenylistPhrases returns phrases forbidden in outbound replies.
func DenylistPhrases() []string {
	keywordsMu.RLock()
	defer keywordsMu.RUnlock()
	return keywords.Denylist
}

// LoadKeywordOverrides loads keywords.yaml from dir and replaces any list
// present in the file. Lists absent from the file keep their defaults.
// Missing file is not an error - defaults stay in effect.
func LoadKeywordOverrides(dir string) error {
	path := filepath.Join(dir, "keywords.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var override keywordSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	keywordsMu.Lock()
	defer keywordsMu.Unlock()
	if len(override.Scam) > 0 {
		keywords.Scam = override.Scam
	}
	if len(override.Suspicious) > 0 {
		keywords.Suspicious = override.Suspicious
	}
	if len(override.Reward) > 0 {
		keywords.Reward = override.Reward
	}
	if len(override.ConversationEnd) > 0 {
		keywords.ConversationEnd = override.ConversationEnd
	}
	if len(override.ActiveAsk) > 0 {
		keywords.ActiveAsk = override.ActiveAsk
	}
	if len(override.Denylist) > 0 {
		keywords.Denylist = override.Denylist
	}
	return nil
}

// SetConversationEndKeywords replaces the end-of-conversation list, used
// for the environment override.
func SetConversationEndKeywords(list []string) {
	if len(list) == 0 {
		return
	}
	keywordsMu.Lock()
	defer keywordsMu.Unlock()
	keywords.ConversationEnd = list
}

// ResetKeywords restores the built-in defaults. Test helper.
func ResetKeywords() {
	keywordsMu.Lock()
	defer keywordsMu.Unlock()
	keywords = defaultKeywords()
}
