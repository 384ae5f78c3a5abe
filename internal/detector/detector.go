package detector

import (
	"regexp"
	"strings"

	"VaultSentinel/internal/oracle"
)

// Source supplies recent notification or transaction texts.
type Source interface {
	Recent() []string
}

// Classifier finds an externally credited deposit amount in free text.
type Classifier interface {
	Classify(texts []string) (amount float64, ok bool)
}

// DefaultKeywords match wording the platform uses for credited deposits.
var DefaultKeywords = []string{
	"deposit",
	"deposited",
	"received",
	"credited",
	"added to your balance",
}

// one amount-like token standing on its own, optionally with a magnitude suffix
var amountToken = regexp.MustCompile(`(?:^|[^A-Za-z0-9_.,-])(\d[\d.,]*\s*[kKmMbBtT]?)(?:[^A-Za-z0-9]|$)`)

// KeywordClassifier reports the first positive amount found in a text that also
// carries deposit wording. Texts are scanned in the order given.
type KeywordClassifier struct {
	Keywords []string
}

// NewKeywordClassifier uses DefaultKeywords when none are given.
func NewKeywordClassifier(keywords ...string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	return &KeywordClassifier{Keywords: lower}
}

func (c *KeywordClassifier) Classify(texts []string) (float64, bool) {
	for _, text := range texts {
		if !c.mentionsDeposit(text) {
			continue
		}
		for _, m := range amountToken.FindAllStringSubmatch(text, -1) {
			v, err := oracle.ParseAmount(m[1])
			if err == nil && v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

func (c *KeywordClassifier) mentionsDeposit(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range c.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
