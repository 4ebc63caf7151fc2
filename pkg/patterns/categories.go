package patterns

// Pattern definitions grouped by category. Regexes mirror the fraud
// playbooks seen in Indian payment scams: UPI handles, +91 phone numbers,
// shortened phishing links, urgency pressure and OTP/PIN harvesting.

// registerExtractionPatterns registers artifact extraction patterns.
// One pattern per category - Registry.FindAll depends on that.
func (r *Registry) registerExtractionPatterns() {
	r.register("bank_account_16d", `\b\d{4}[-.\s]?\d{4}[-.\s]?\d{4}[-.\s]?\d{4}\b`,
		CategoryBankAccount, "16-digit account/card number with optional separators")

	r.register("upi_handle", `(?i)\b[\w.-]+@(?:paytm|gpay|phonepe|ybl|axl|okicici|okaxis|okhdfcbank|oksbi|payzapp|upi)\b`,
		CategoryUPIHandle, "UPI virtual payment address on a known PSP suffix")

	r.register("http_url", `http[s]?://(?:[a-zA-Z]|[0-9]|[$\-_@.&+]|[!*(),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`,
		CategoryURL, "HTTP/HTTPS URL")
}

// registerUrgencyPatterns registers pressure-language patterns.
// True urgency only - "verify" and "account" live in banking terms so a
// single verification request does not inflate the urgency score.
func (r *Registry) registerUrgencyPatterns() {
	r.register("urgency_words", `(?i)\b(urgent|immediately|asap|right now|hurry|quickly)\b`,
		CategoryUrgency, "Direct urgency vocabulary")
	r.register("urgency_threat", `(?i)\b(blocked|suspended|frozen|locked|closed)\b`,
		CategoryUrgency, "Account threat vocabulary")
	r.register("urgency_deadline", `(?i)\b(within|today|hours left|final notice)\b`,
		CategoryUrgency, "Deadline pressure")
	r.register("urgency_imminent", `(?i)\b(will be|going to|about to)\b`,
		CategoryUrgency, "Imminent consequence phrasing")
}

// registerBankingTermPatterns registers low-weight contextual banking terms.
func (r *Registry) registerBankingTermPatterns() {
	r.register("banking_verify", `(?i)\b(verify|confirm|validate|authenticate)\b`,
		CategoryBankingTerm, "Verification verbs")
	r.register("banking_nouns", `(?i)\b(account|bank|upi|payment|transaction)\b`,
		CategoryBankingTerm, "Banking nouns")
}

// registerPhishingPatterns registers link-based phishing indicators.
func (r *Registry) registerPhishingPatterns() {
	r.register("phishing_url", `(?i)http[s]?://(?:[a-zA-Z]|[0-9]|[$\-_@.&+])+`,
		CategoryPhishing, "Any embedded URL")
	r.register("phishing_shortener", `(?i)bit\.ly|tinyurl|short\.link`,
		CategoryPhishing, "Known URL shorteners")
	r.register("phishing_phrasing", `(?i)verify.*link|click.*here|visit.*url`,
		CategoryPhishing, "Verification-link phrasing")
}

// registerSensitiveInfoPatterns registers credential harvesting patterns.
func (r *Registry) registerSensitiveInfoPatterns() {
	r.register("sensitive_nouns", `(?i)\b(upi id|upi|account number|bank account|card number|pin|otp|cvv)\b`,
		CategorySensitiveInfo, "Sensitive credential nouns")
	r.register("sensitive_request", `(?i)\b(share|send|provide|give|tell)\b.*\b(upi|account|otp|pin)\b`,
		CategorySensitiveInfo, "Request verb targeting a credential")
}
